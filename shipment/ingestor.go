package shipment

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"

	"github.com/ern-cohorts/cohort-ingest/catalog"
	"github.com/ern-cohorts/cohort-ingest/lookup"
)

func init() {
	// Manifests are tab-delimited.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})
}

// ParseManifest reads one tabular shipment manifest.
func ParseManifest(r io.Reader) ([]*ManifestRow, error) {
	rows := []*ManifestRow{}
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return rows, nil
}

// Ingest converts one manifest into validated subject, sample,
// experiment and file staging frames, triaged against the known
// identifier sets. Row-level problems never abort the ingest; an
// unrecodable release token does, because every staged row would carry
// a dangling release reference.
func Ingest(rows []*ManifestRow, maps *lookup.Maps) (*Result, error) {
	res := &Result{}
	stagedSubjects := map[string]*catalog.Subject{}
	stagedSamples := map[string]*catalog.Sample{}
	stagedExperiments := map[string]*catalog.Experiment{}
	stagedFiles := map[string]*catalog.File{}
	stagedReleases := map[string]catalog.Release{}

	for i, row := range rows {
		line := i + 2 // header is line 1
		subjectID := strings.ToUpper(strings.TrimSpace(row.SubjectID))
		sampleID := strings.TrimSpace(row.SampleID)
		experimentID := strings.TrimSpace(row.ExperimentID)
		analysis := normalizeAnalysis(row.TypeOfAnalysis)

		if subjectID == "0" || strings.HasPrefix(subjectID, "FAM") {
			res.Unresolved = append(res.Unresolved, UnresolvedRow{
				Line:      line,
				SubjectID: subjectID,
				Reason:    "subject identifier is a family token or zero",
			})
			continue
		}

		releaseID, release, err := resolveRelease(row, analysis, maps)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if release != nil {
			stagedReleases[release.ID] = *release
		}

		miss := func(field, value string) {
			if strings.TrimSpace(value) != "" {
				res.RecodeMisses = append(res.RecodeMisses, RecodeMiss{Line: line, Field: field, Value: value})
			}
		}
		recode := func(m lookup.RecodeMap, field, value string) string {
			if strings.TrimSpace(value) == "" {
				return ""
			}
			canonical, ok := m.Lookup(value)
			if !ok {
				miss(field, value)
				return ""
			}
			return canonical
		}

		ern := recode(maps.ERN, "ern", row.ERN)
		org := recodeOrg(maps.Org, row.Organisation)
		if org == "" {
			miss("organisation", row.Organisation)
		}
		sex := recode(maps.SexMap, "sex", row.Sex)
		tissue := recode(maps.Tissue, "tissue_type", row.TissueType)
		material := recodeMaterial(row, maps, miss)
		pathological := recode(maps.Pathological, "pathological_state", row.PathologicalState)
		seqType := recode(maps.SeqType, "type_of_analysis", row.TypeOfAnalysis)
		fileFormat := recode(maps.FileFormat, "file_type", row.FileFormat)
		anatomical, anatomicalComment := recodeAnatomical(row.AnatomicalLocation, maps, miss)

		subject := &catalog.Subject{
			ID:           subjectID,
			Sex:          sex,
			Organisation: org,
			ERN:          ern,
			Releases:     []string{releaseID},
		}
		sample := &catalog.Sample{
			ID:                        sampleID,
			SubjectID:                 subjectID,
			TissueType:                tissue,
			MaterialType:              material,
			AlternativeIdentifiers:    catalog.SplitSet(row.AlternativeIDs),
			Batch:                     catalog.SplitSet(row.Batch),
			PathologicalState:         pathological,
			PercentageTumorCells:      parsePercentage(row.PercentageTumorCells),
			AnatomicalLocation:        anatomical,
			AnatomicalLocationComment: anatomicalComment,
			ExtractedProtocol:         strings.TrimSpace(row.ExtractedProtocol),
			Organisation:              org,
			ERN:                       ern,
			Releases:                  []string{releaseID},
		}
		experiment := &catalog.Experiment{
			ID:               experimentID,
			SampleID:         sampleID,
			CaptureKit:       strings.TrimSpace(row.CaptureKit),
			LibraryType:      titleCase(row.LibrarySource),
			LibraryLayout:    normalizeLayout(row.LibraryLayout),
			SequencingCenter: strings.TrimSpace(row.SequencingCenter),
			Sequencer:        strings.TrimSpace(row.Sequencer),
			SeqType:          seqType,
			Releases:         []string{releaseID},
		}

		subjectExists := maps.KnownSubjects[subjectID]
		sampleExists := maps.KnownSamples[sampleID]
		experimentExists := experimentID != "" && maps.KnownExperiments[experimentID]

		if !subjectExists {
			stageSubject(stagedSubjects, subject)
		}
		if !sampleExists {
			stageSample(stagedSamples, sample)
		}
		if experimentID != "" && !experimentExists && !sampleExists {
			stageExperiment(stagedExperiments, experiment)
		}
		if subjectExists || sampleExists || experimentExists {
			res.Updates = append(res.Updates, Update{
				Line:             line,
				Subject:          subject,
				Sample:           sample,
				Experiment:       experiment,
				SubjectExists:    subjectExists,
				SampleExists:     sampleExists,
				ExperimentExists: experimentExists,
			})
		}

		if f := stageFile(row, fileFormat, subjectID, sampleID, experimentID, releaseID); f != nil {
			stagedFiles[f.ID] = f
		}
	}

	for _, s := range stagedSubjects {
		res.NewSubjects = append(res.NewSubjects, s)
	}
	for _, s := range stagedSamples {
		res.NewSamples = append(res.NewSamples, s)
	}
	for _, e := range stagedExperiments {
		res.NewExperiments = append(res.NewExperiments, e)
	}
	for _, f := range stagedFiles {
		res.NewFiles = append(res.NewFiles, f)
	}
	for _, r := range stagedReleases {
		res.Releases = append(res.Releases, r)
	}

	log.WithField("rows", len(rows)).
		WithField("newSubjects", len(res.NewSubjects)).
		WithField("newSamples", len(res.NewSamples)).
		WithField("updates", len(res.Updates)).
		WithField("unresolved", len(res.Unresolved)).
		WithField("recodeMisses", len(res.RecodeMisses)).
		Info("Ingested shipment manifest")
	return res, nil
}

// resolveRelease derives the release a row belongs to. Novel-omics
// manifests carry an analysis type and land in a rolling release keyed
// by it; freeze manifests carry an explicit release tag.
func resolveRelease(row *ManifestRow, analysis string, maps *lookup.Maps) (string, *catalog.Release, error) {
	if analysis != "" {
		id := "novel" + analysis + "_original"
		rel := &catalog.Release{
			ID:   id,
			Name: "Novel Omics " + strings.ToUpper(strings.TrimSpace(row.TypeOfAnalysis)),
			Type: "novelomics",
		}
		return id, rel, nil
	}
	id, ok := maps.Release.Lookup(row.ReleaseTag)
	if !ok {
		return "", nil, fmt.Errorf("release token %q does not recode to a known release", row.ReleaseTag)
	}
	return id, nil, nil
}

func normalizeAnalysis(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, "-", "")
	return strings.ReplaceAll(v, " ", "")
}

func recodeOrg(m lookup.RecodeMap, v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	canonical, _ := m.Lookup(lookup.NormalizeOrg(v))
	return canonical
}

// recodeMaterial applies the compound rule: a material of FFPE always
// wins over whatever sample-type token came with it.
func recodeMaterial(row *ManifestRow, maps *lookup.Maps, miss func(string, string)) string {
	if lookup.Normalize(row.SampleType) == "ffpe" || lookup.Normalize(row.TissueType) == "ffpe" {
		return "TISSUE (FFPE)"
	}
	if strings.TrimSpace(row.SampleType) == "" {
		return ""
	}
	canonical, ok := maps.Material.Lookup(row.SampleType)
	if !ok {
		miss("sample_type", row.SampleType)
		return ""
	}
	return canonical
}

// recodeAnatomical maps a location to its ontology term. Values that
// land in the catch-all Other bucket, or do not map at all, keep the
// submitted text as a comment.
func recodeAnatomical(v string, maps *lookup.Maps, miss func(string, string)) (string, string) {
	if strings.TrimSpace(v) == "" {
		return "", ""
	}
	canonical, ok := maps.Anatomical.Lookup(v)
	if !ok {
		miss("anatomical_location", v)
		return "", strings.TrimSpace(v)
	}
	if canonical == "Other" {
		return canonical, strings.TrimSpace(v)
	}
	return canonical, ""
}

func normalizeLayout(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "PAIRED":
		return "1"
	case "SINGLE":
		return "2"
	}
	return ""
}

func titleCase(v string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(v)))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func parsePercentage(v string) null.Float {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
	if v == "" {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// fullFilePath joins path and name, dropping empty segments.
func fullFilePath(dir, name string) string {
	var segments []string
	for _, s := range []string{strings.Trim(strings.TrimSpace(dir), "/"), strings.TrimSpace(name)} {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, "/")
}

func stageFile(row *ManifestRow, format, subjectID, sampleID, experimentID, releaseID string) *catalog.File {
	name := strings.TrimSpace(row.FileName)
	if name == "" {
		return nil
	}
	path := fullFilePath(row.FilePath, name)
	id := strings.TrimSpace(row.EGAAccession)
	if id == "" {
		id = strings.TrimSpace(row.MD5) + ":" + path
	}
	return &catalog.File{
		ID:           id,
		Path:         path,
		Name:         name,
		MD5:          strings.TrimSpace(row.MD5),
		Format:       format,
		SubjectID:    subjectID,
		SampleID:     sampleID,
		ExperimentID: experimentID,
		Releases:     []string{releaseID},
	}
}

func stageSubject(staged map[string]*catalog.Subject, s *catalog.Subject) {
	if existing, ok := staged[s.ID]; ok {
		existing.Releases = catalog.UnionSet(existing.Releases, s.Releases)
		if existing.Sex == "" {
			existing.Sex = s.Sex
		}
		return
	}
	staged[s.ID] = s
}

func stageSample(staged map[string]*catalog.Sample, s *catalog.Sample) {
	if existing, ok := staged[s.ID]; ok {
		existing.Releases = catalog.UnionSet(existing.Releases, s.Releases)
		existing.Batch = catalog.UnionSet(existing.Batch, s.Batch)
		existing.AlternativeIdentifiers = catalog.UnionSet(existing.AlternativeIdentifiers, s.AlternativeIdentifiers)
		return
	}
	staged[s.ID] = s
}

func stageExperiment(staged map[string]*catalog.Experiment, e *catalog.Experiment) {
	if existing, ok := staged[e.ID]; ok {
		existing.Releases = catalog.UnionSet(existing.Releases, e.Releases)
		return
	}
	staged[e.ID] = e
}
