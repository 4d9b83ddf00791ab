package shipment

import (
	"github.com/ern-cohorts/cohort-ingest/catalog"
)

// ManifestRow is one line of a submitted shipment manifest: one sample
// of one subject, with the experiment and file that were run on it.
// Column names follow the submitter template.
type ManifestRow struct {
	SubjectID            string `csv:"participant_subject"`
	SampleID             string `csv:"sample_id"`
	ExperimentID         string `csv:"experiment_id"`
	TypeOfAnalysis       string `csv:"type_of_analysis"`
	ReleaseTag           string `csv:"release"`
	ERN                  string `csv:"ern"`
	Organisation         string `csv:"organisation"`
	Sex                  string `csv:"sex"`
	TissueType           string `csv:"tissue_type"`
	SampleType           string `csv:"sample_type"`
	AlternativeIDs       string `csv:"alternative_sample_identifier"`
	Batch                string `csv:"batch"`
	PathologicalState    string `csv:"pathological_state"`
	PercentageTumorCells string `csv:"tumor_cell_fraction"`
	AnatomicalLocation   string `csv:"anatomical_location"`
	ExtractedProtocol    string `csv:"extracted_protocol"`
	CaptureKit           string `csv:"capture_kit"`
	LibrarySource        string `csv:"library_source"`
	LibraryLayout        string `csv:"library_layout"`
	SequencingCenter     string `csv:"sequencing_center"`
	Sequencer            string `csv:"platform_model"`
	FilePath             string `csv:"file_path"`
	FileName             string `csv:"file_name"`
	FileFormat           string `csv:"file_type"`
	MD5                  string `csv:"unencrypted_md5_checksum"`
	EGAAccession         string `csv:"ega_accession"`
}

// RecodeMiss is a value that could not be resolved against a
// controlled vocabulary. Misses never fail the run; the raw value is
// retained and the miss reported.
type RecodeMiss struct {
	Line  int
	Field string
	Value string
}

// UnresolvedRow is a manifest line dropped from staging because its
// subject identity cannot be resolved.
type UnresolvedRow struct {
	Line      int
	SubjectID string
	Reason    string
}

// Update is the staged view of a manifest row for which the subject,
// sample or experiment already exists in the catalog. The engine
// merges the existing ones against the live records; the new ones are
// already staged in the insert lists.
type Update struct {
	Line             int
	Subject          *catalog.Subject
	Sample           *catalog.Sample
	Experiment       *catalog.Experiment
	SubjectExists    bool
	SampleExists     bool
	ExperimentExists bool
}

// Result holds the staging frames produced from one manifest.
type Result struct {
	NewSubjects    []*catalog.Subject
	NewSamples     []*catalog.Sample
	NewExperiments []*catalog.Experiment
	NewFiles       []*catalog.File
	Updates        []Update
	Unresolved     []UnresolvedRow
	RecodeMisses   []RecodeMiss
	Releases       []catalog.Release
}
