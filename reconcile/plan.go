package reconcile

import (
	"github.com/ern-cohorts/cohort-ingest/catalog"
)

// ConflictKind tags a review-queue entry with the record type it
// concerns.
type ConflictKind string

const (
	SubjectConflict    ConflictKind = "subject"
	SampleConflict     ConflictKind = "sample"
	ExperimentConflict ConflictKind = "experiment"
	FileConflict       ConflictKind = "file"
	PacketConflict     ConflictKind = "packet"
)

// Conflict is one entry in the review queue: a merge the engine will
// not perform without a curator decision.
type Conflict struct {
	Kind          ConflictKind
	Key           string
	Field         string
	CatalogValue  string
	IncomingValue string
	Source        string
	Reason        string
}

// SubjectInfoRow is a denormalized subject-info record republished
// through the CSV upload path.
type SubjectInfoRow struct {
	SubjectID   string `csv:"subjectID"`
	DateOfBirth string `csv:"dateOfBirth"`
	UpdatedAt   string `csv:"dateRecordUpdated"`
	UpdatedBy   string `csv:"wasUpdatedBy"`
}

// Plan is the idempotent write plan one reconciliation run produces.
// Applying the same plan twice leaves the catalog unchanged.
type Plan struct {
	InsertReleases    []catalog.Release
	InsertSubjects    []*catalog.Subject
	InsertSamples     []*catalog.Sample
	InsertExperiments []*catalog.Experiment
	InsertFiles       []*catalog.File

	UpdateSubjects    []*catalog.Subject
	UpdateSamples     []*catalog.Sample
	UpdateExperiments []*catalog.Experiment

	SubjectInfo []SubjectInfoRow

	ReviewQueue []Conflict
}

// HasConflicts reports whether the run must exit with the
// unresolved-conflicts status.
func (p *Plan) HasConflicts() bool {
	return len(p.ReviewQueue) > 0
}

// Empty reports whether the plan would write anything at all.
func (p *Plan) Empty() bool {
	return len(p.InsertReleases) == 0 &&
		len(p.InsertSubjects) == 0 &&
		len(p.InsertSamples) == 0 &&
		len(p.InsertExperiments) == 0 &&
		len(p.InsertFiles) == 0 &&
		len(p.UpdateSubjects) == 0 &&
		len(p.UpdateSamples) == 0 &&
		len(p.UpdateExperiments) == 0 &&
		len(p.SubjectInfo) == 0
}

func (p *Plan) review(c Conflict) {
	p.ReviewQueue = append(p.ReviewQueue, c)
}
