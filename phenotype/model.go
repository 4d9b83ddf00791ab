package phenotype

// Packet is the wire shape of one phenotype packet.
type Packet struct {
	Phenopacket *Phenopacket `json:"phenopacket"`
}

type Phenopacket struct {
	ID                 string        `json:"id"`
	Subject            PacketSubject `json:"subject"`
	PhenotypicFeatures []Feature     `json:"phenotypicFeatures"`
	Diseases           []Disease     `json:"diseases"`
}

type PacketSubject struct {
	DateOfBirth string `json:"dateOfBirth"`
	Sex         string `json:"sex"`
}

type Feature struct {
	Type    Term `json:"type"`
	Negated bool `json:"negated"`
}

type Disease struct {
	Term         Term  `json:"term"`
	ClassOfOnset *Term `json:"classOfOnset,omitempty"`
}

type Term struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// SubjectPhenotype is the extracted, recoded clinical profile of one
// subject from one packet.
type SubjectPhenotype struct {
	SubjectID         string
	File              string
	Sex               string
	BirthYear         string
	Phenotypes        []string
	NegatedPhenotypes []string
	Diseases          []string
	AgeOfOnset        []string
	UnknownPhenotypes []string
	UnknownDiseases   []string
	UnknownOnset      []string
	SubjectExists     bool
}

// SkippedPacket is a packet that could not be ingested at all.
type SkippedPacket struct {
	File   string
	Reason string
}

// Result holds the staging frames of one phenotype-packet batch.
type Result struct {
	Subjects []SubjectPhenotype
	// ForReview are packets whose subject is not in the registry;
	// they are excluded from the normal merge.
	ForReview []SubjectPhenotype
	Skipped   []SkippedPacket
}
