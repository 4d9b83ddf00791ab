package catalog

import (
	"strconv"

	"gopkg.in/guregu/null.v3"

	"github.com/ern-cohorts/cohort-ingest/repository"
)

// Repository table names, in foreign-key order. Writes must be issued
// releases → subjects → subjectinfo → samples → experiments → files.
const (
	TableReleases    = "releases"
	TableSubjects    = "subjects"
	TableSubjectInfo = "subjectinfo"
	TableSamples     = "samples"
	TableExperiments = "experiments"
	TableFiles       = "files"
)

// Audit stamp attributes set on every write.
const (
	AttrDateRecordCreated = "dateRecordCreated"
	AttrRecordCreatedBy   = "recordCreatedBy"
	AttrDateRecordUpdated = "dateRecordUpdated"
	AttrWasUpdatedBy      = "wasUpdatedBy"
)

type Audit struct {
	CreatedAt string
	CreatedBy string
	UpdatedAt string
	UpdatedBy string
}

// Subject is the identity of a studied individual across releases.
type Subject struct {
	ID                string
	Sex               string
	FamilyID          string
	MaternalID        string
	PaternalID        string
	Affection         null.Bool
	Phenotypes        []string
	NegatedPhenotypes []string
	Diseases          []string
	AgeOfOnset        []string
	UnknownPhenotypes []string
	UnknownDiseases   []string
	UnknownOnset      []string
	PhenotypeFile     string
	BirthYear         string
	Organisation      string
	ERN               string
	Releases          []string
	Solved            null.Bool
	SolvedDate        string
	Retracted         bool
	Comments          string
	Audit
}

type Sample struct {
	ID                        string
	SubjectID                 string
	TissueType                string
	MaterialType              string
	AlternativeIdentifiers    []string
	Batch                     []string
	PathologicalState         string
	PercentageTumorCells      null.Float
	AnatomicalLocation        string
	AnatomicalLocationComment string
	ExtractedProtocol         string
	Organisation              string
	ERN                       string
	Releases                  []string
	Retracted                 bool
	Comments                  string
	Audit
}

type Experiment struct {
	ID               string
	SampleID         string
	CaptureKit       string
	LibraryType      string
	LibraryLayout    string
	SequencingCenter string
	Sequencer        string
	SeqType          string
	Releases         []string
	Retracted        bool
	Comments         string
	Audit
}

// File is a deliverable artifact tied to one experiment. The key is
// the EGA accession when present, else content hash + path.
type File struct {
	ID           string
	Path         string
	Name         string
	MD5          string
	Format       string
	SubjectID    string
	SampleID     string
	ExperimentID string
	Releases     []string
	Audit
}

type Release struct {
	ID          string
	Name        string
	Type        string
	Date        string
	Description string
}

func SubjectFromRow(r repository.Row) *Subject {
	return &Subject{
		ID:                r["subjectID"],
		Sex:               r["sex"],
		FamilyID:          r["fid"],
		MaternalID:        r["mid"],
		PaternalID:        r["pid"],
		Affection:         boolFromAttr(r["clinicalStatus"]),
		Phenotypes:        SplitSet(r["phenotype"]),
		NegatedPhenotypes: SplitSet(r["hasNotPhenotype"]),
		Diseases:          SplitSet(r["disease"]),
		AgeOfOnset:        SplitSet(r["ageOfOnset"]),
		UnknownPhenotypes: SplitSet(r["unknownPhenotype"]),
		UnknownDiseases:   SplitSet(r["unknownDisease"]),
		UnknownOnset:      SplitSet(r["unknownOnset"]),
		PhenotypeFile:     r["mostRecentPhenotypeFile"],
		Organisation:      r["organisation"],
		ERN:               r["ERN"],
		Releases:          SplitSet(r["partOfRelease"]),
		Solved:            boolFromAttr(r["solved"]),
		SolvedDate:        r["dateSolved"],
		Retracted:         r["retracted"] == "true",
		Comments:          r["comments"],
		Audit:             auditFromRow(r),
	}
}

func (s *Subject) Row() repository.Row {
	r := repository.Row{
		"subjectID":               s.ID,
		"sex":                     s.Sex,
		"fid":                     s.FamilyID,
		"mid":                     s.MaternalID,
		"pid":                     s.PaternalID,
		"clinicalStatus":          boolToAttr(s.Affection),
		"phenotype":               JoinSet(s.Phenotypes),
		"hasNotPhenotype":         JoinSet(s.NegatedPhenotypes),
		"disease":                 JoinSet(s.Diseases),
		"ageOfOnset":              JoinSet(s.AgeOfOnset),
		"unknownPhenotype":        JoinSet(s.UnknownPhenotypes),
		"unknownDisease":          JoinSet(s.UnknownDiseases),
		"unknownOnset":            JoinSet(s.UnknownOnset),
		"mostRecentPhenotypeFile": s.PhenotypeFile,
		"organisation":            s.Organisation,
		"ERN":                     s.ERN,
		"partOfRelease":           JoinSet(s.Releases),
		"solved":                  boolToAttr(s.Solved),
		"dateSolved":              s.SolvedDate,
		"retracted":               retractedAttr(s.Retracted),
		"comments":                s.Comments,
	}
	s.Audit.stamp(r)
	return r
}

func SampleFromRow(r repository.Row) *Sample {
	return &Sample{
		ID:                        r["sampleID"],
		SubjectID:                 r["subjectID"],
		TissueType:                r["tissueType"],
		MaterialType:              r["materialType"],
		AlternativeIdentifiers:    SplitSet(r["alternativeSampleIdentifiers"]),
		Batch:                     SplitSet(r["batch"]),
		PathologicalState:         r["pathologicalState"],
		PercentageTumorCells:      floatFromAttr(r["percentageTumorCells"]),
		AnatomicalLocation:        r["anatomicalLocation"],
		AnatomicalLocationComment: r["anatomicalLocationComment"],
		ExtractedProtocol:         r["extractedProtocol"],
		Organisation:              r["organisation"],
		ERN:                       r["ERN"],
		Releases:                  SplitSet(r["partOfRelease"]),
		Retracted:                 r["retracted"] == "true",
		Comments:                  r["comments"],
		Audit:                     auditFromRow(r),
	}
}

func (s *Sample) Row() repository.Row {
	r := repository.Row{
		"sampleID":                     s.ID,
		"subjectID":                    s.SubjectID,
		"tissueType":                   s.TissueType,
		"materialType":                 s.MaterialType,
		"alternativeSampleIdentifiers": JoinSet(s.AlternativeIdentifiers),
		"batch":                        JoinSet(s.Batch),
		"pathologicalState":            s.PathologicalState,
		"percentageTumorCells":         floatToAttr(s.PercentageTumorCells),
		"anatomicalLocation":           s.AnatomicalLocation,
		"anatomicalLocationComment":    s.AnatomicalLocationComment,
		"extractedProtocol":            s.ExtractedProtocol,
		"organisation":                 s.Organisation,
		"ERN":                          s.ERN,
		"partOfRelease":                JoinSet(s.Releases),
		"retracted":                    retractedAttr(s.Retracted),
		"comments":                     s.Comments,
	}
	s.Audit.stamp(r)
	return r
}

func ExperimentFromRow(r repository.Row) *Experiment {
	return &Experiment{
		ID:               r["experimentID"],
		SampleID:         r["sampleID"],
		CaptureKit:       r["captureKit"],
		LibraryType:      r["libraryType"],
		LibraryLayout:    r["libraryLayout"],
		SequencingCenter: r["sequencingCenter"],
		Sequencer:        r["sequencer"],
		SeqType:          r["seqType"],
		Releases:         SplitSet(r["partOfRelease"]),
		Retracted:        r["retracted"] == "true",
		Comments:         r["comments"],
		Audit:            auditFromRow(r),
	}
}

func (e *Experiment) Row() repository.Row {
	r := repository.Row{
		"experimentID":     e.ID,
		"sampleID":         e.SampleID,
		"captureKit":       e.CaptureKit,
		"libraryType":      e.LibraryType,
		"libraryLayout":    e.LibraryLayout,
		"sequencingCenter": e.SequencingCenter,
		"sequencer":        e.Sequencer,
		"seqType":          e.SeqType,
		"partOfRelease":    JoinSet(e.Releases),
		"retracted":        retractedAttr(e.Retracted),
		"comments":         e.Comments,
	}
	e.Audit.stamp(r)
	return r
}

func FileFromRow(r repository.Row) *File {
	return &File{
		ID:           r["fileID"],
		Path:         r["filePath"],
		Name:         r["fileName"],
		MD5:          r["md5"],
		Format:       r["fileFormat"],
		SubjectID:    r["subjectID"],
		SampleID:     r["sampleID"],
		ExperimentID: r["experimentID"],
		Releases:     SplitSet(r["partOfRelease"]),
		Audit:        auditFromRow(r),
	}
}

func (f *File) Row() repository.Row {
	r := repository.Row{
		"fileID":        f.ID,
		"filePath":      f.Path,
		"fileName":      f.Name,
		"md5":           f.MD5,
		"fileFormat":    f.Format,
		"subjectID":     f.SubjectID,
		"sampleID":      f.SampleID,
		"experimentID":  f.ExperimentID,
		"partOfRelease": JoinSet(f.Releases),
	}
	f.Audit.stamp(r)
	return r
}

func ReleaseFromRow(r repository.Row) Release {
	return Release{
		ID:          r["id"],
		Name:        r["name"],
		Type:        r["type"],
		Date:        r["date"],
		Description: r["description"],
	}
}

func (rel Release) Row() repository.Row {
	return repository.Row{
		"id":          rel.ID,
		"name":        rel.Name,
		"type":        rel.Type,
		"date":        rel.Date,
		"description": rel.Description,
	}
}

func auditFromRow(r repository.Row) Audit {
	return Audit{
		CreatedAt: r[AttrDateRecordCreated],
		CreatedBy: r[AttrRecordCreatedBy],
		UpdatedAt: r[AttrDateRecordUpdated],
		UpdatedBy: r[AttrWasUpdatedBy],
	}
}

func (a Audit) stamp(r repository.Row) {
	if a.CreatedAt != "" {
		r[AttrDateRecordCreated] = a.CreatedAt
	}
	if a.CreatedBy != "" {
		r[AttrRecordCreatedBy] = a.CreatedBy
	}
	if a.UpdatedAt != "" {
		r[AttrDateRecordUpdated] = a.UpdatedAt
	}
	if a.UpdatedBy != "" {
		r[AttrWasUpdatedBy] = a.UpdatedBy
	}
}

func boolFromAttr(v string) null.Bool {
	switch v {
	case "true":
		return null.BoolFrom(true)
	case "false":
		return null.BoolFrom(false)
	}
	return null.Bool{}
}

func boolToAttr(b null.Bool) string {
	if !b.Valid {
		return ""
	}
	return strconv.FormatBool(b.Bool)
}

func retractedAttr(retracted bool) string {
	if retracted {
		return "true"
	}
	return ""
}

func floatFromAttr(v string) null.Float {
	if v == "" {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

func floatToAttr(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}
