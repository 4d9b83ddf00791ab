package pedigree

import (
	"bufio"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"

	"github.com/ern-cohorts/cohort-ingest/catalog"
)

// Record is one parsed pedigree line, keyed by the individual it
// describes.
type Record struct {
	File       string
	FamilyID   string
	SubjectID  string
	PaternalID string
	MaternalID string
	Sex        string
	Affection  null.Bool
	Upload     bool
}

// Anomaly is a value that did not match the pedigree coding tables.
type Anomaly struct {
	File      string
	Line      int
	SubjectID string
	Field     string
	Value     string
}

// Result accumulates the records of one or more pedigree files before
// cross-file reconciliation.
type Result struct {
	Records      []Record
	Anomalies    []Anomaly
	SkippedLines int
}

// ParseFile parses one six-column pedigree file
// (familyID individualID paternalID maternalID sex affection) against
// the known-subject set. Lines with any other column count are skipped
// and counted.
func ParseFile(name string, content string, knownSubjects map[string]bool) *Result {
	res := &Result{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 6 {
			res.SkippedLines++
			continue
		}

		rec := Record{
			File:       name,
			FamilyID:   fields[0],
			SubjectID:  strings.ToUpper(fields[1]),
			PaternalID: strings.ToUpper(fields[2]),
			MaternalID: strings.ToUpper(fields[3]),
			Upload:     true,
		}

		sex, ok := recodeSex(fields[4])
		if !ok {
			res.Anomalies = append(res.Anomalies, Anomaly{
				File: name, Line: lineNo, SubjectID: rec.SubjectID, Field: "sex", Value: fields[4],
			})
		}
		rec.Sex = sex

		affection, ok := recodeAffection(fields[5])
		if !ok {
			res.Anomalies = append(res.Anomalies, Anomaly{
				File: name, Line: lineNo, SubjectID: rec.SubjectID, Field: "affection", Value: fields[5],
			})
		}
		rec.Affection = affection

		// An individual we cannot place in the catalog does not
		// upload at all; a missing parent only blanks the link.
		if strings.HasPrefix(rec.SubjectID, "FAM") || !knownSubjects[rec.SubjectID] {
			rec.Upload = false
		}
		if rec.PaternalID == "0" || !knownSubjects[rec.PaternalID] {
			rec.PaternalID = ""
		}
		if rec.MaternalID == "0" || !knownSubjects[rec.MaternalID] {
			rec.MaternalID = ""
		}

		res.Records = append(res.Records, rec)
	}

	if res.SkippedLines > 0 {
		log.WithField("file", name).WithField("skipped", res.SkippedLines).Warn("Skipped malformed pedigree lines")
	}
	return res
}

func recodeSex(code string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "1":
		return "M", true
	case "2":
		return "F", true
	case "other":
		return "U", true
	}
	return "", false
}

func recodeAffection(code string) (null.Bool, bool) {
	switch strings.TrimSpace(code) {
	case "-9", "0":
		return null.Bool{}, true
	case "1":
		return null.BoolFrom(false), true
	case "2":
		return null.BoolFrom(true), true
	}
	return null.Bool{}, false
}

// Merge collapses the results of every pedigree file into one record
// per subject, ready for the engine. Distinct family observations are
// kept as a set; when the same subject appears in several files the
// record with the most non-null parental data wins. Duplicate lines
// (same file, same subject) are collapsed to the first occurrence.
func Merge(results []*Result) []Record {
	type key struct{ file, subject string }
	seen := map[key]bool{}
	bySubject := map[string]*Record{}
	families := map[string][]string{}
	var order []string

	for _, res := range results {
		for _, rec := range res.Records {
			if !rec.Upload {
				continue
			}
			k := key{rec.File, rec.SubjectID}
			if seen[k] {
				continue
			}
			seen[k] = true

			if rec.FamilyID != "" {
				families[rec.SubjectID] = catalog.UnionSet(families[rec.SubjectID], []string{rec.FamilyID})
			}

			existing, ok := bySubject[rec.SubjectID]
			if !ok {
				r := rec
				bySubject[rec.SubjectID] = &r
				order = append(order, rec.SubjectID)
				continue
			}
			if parentCount(rec) > parentCount(*existing) {
				upload := existing.Upload
				*existing = rec
				existing.Upload = upload
			}
		}
	}

	merged := make([]Record, 0, len(order))
	for _, id := range order {
		rec := bySubject[id]
		rec.FamilyID = catalog.JoinSet(families[id])
		merged = append(merged, *rec)
	}
	return merged
}

func parentCount(r Record) int {
	n := 0
	if r.PaternalID != "" {
		n++
	}
	if r.MaternalID != "" {
		n++
	}
	return n
}
