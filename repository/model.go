package repository

// Row is one record as the repository returns it: every attribute is a
// string, multi-valued attributes are comma-joined.
type Row map[string]string

// QueryOptions narrow a table read. Attrs projects the listed
// attributes only; Filter is a repository filter expression such as
// `retracted==true`; both may be empty.
type QueryOptions struct {
	Attrs  []string
	Filter string
}

type tablePage struct {
	Items []Row `json:"items"`
	Total int   `json:"total"`
}

type entityBatch struct {
	Entities []Row `json:"entities"`
}

type columnValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type columnBatch struct {
	Entities []columnValue `json:"entities"`
}

// UploadAction selects how a CSV upload treats rows that already exist.
type UploadAction string

const (
	AddUpdateExisting UploadAction = "add_update_existing"
)
