package phenotype

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ern-cohorts/cohort-ingest/catalog"
	"github.com/ern-cohorts/cohort-ingest/lookup"
)

var errNoPhenopacket = errors.New("packet has no phenopacket object")

func errMalformed(err error) error {
	return fmt.Errorf("malformed packet JSON: %w", err)
}

// Ingestor extracts and validates phenotype packets against the
// ontology membership sets.
type Ingestor struct {
	maps *lookup.Maps
}

func NewIngestor(maps *lookup.Maps) *Ingestor {
	return &Ingestor{maps: maps}
}

// IngestBatch parses every packet and partitions the extracted
// profiles into mergeable subjects, packets held for review because
// their subject is unknown, and packets skipped outright.
func (ing *Ingestor) IngestBatch(packets map[string][]byte) *Result {
	res := &Result{}
	for file, raw := range packets {
		sp, err := ing.Ingest(file, raw)
		if err != nil {
			log.WithError(err).WithField("file", file).Warn("Skipping phenotype packet")
			res.Skipped = append(res.Skipped, SkippedPacket{File: file, Reason: err.Error()})
			continue
		}
		if !sp.SubjectExists {
			res.ForReview = append(res.ForReview, *sp)
			continue
		}
		res.Subjects = append(res.Subjects, *sp)
	}
	return res
}

// Ingest extracts one packet. Unknown ontology codes are carved out to
// the unknown lists but never dropped, so curators can enrich the
// ontologies later without losing history.
func (ing *Ingestor) Ingest(file string, raw []byte) (*SubjectPhenotype, error) {
	var packet Packet
	if err := json.Unmarshal(raw, &packet); err != nil {
		return nil, errMalformed(err)
	}
	if packet.Phenopacket == nil || packet.Phenopacket.ID == "" {
		return nil, errNoPhenopacket
	}
	pp := packet.Phenopacket

	sp := &SubjectPhenotype{
		SubjectID:     strings.ToUpper(strings.TrimSpace(pp.ID)),
		File:          file,
		Sex:           recodeSex(pp.Subject.Sex),
		BirthYear:     birthYear(pp.Subject.DateOfBirth),
		SubjectExists: ing.maps.KnownSubjects[strings.ToUpper(strings.TrimSpace(pp.ID))],
	}

	observed, negated := partitionFeatures(pp.PhenotypicFeatures)
	for _, code := range observed {
		if ing.maps.HPO[code] {
			sp.Phenotypes = append(sp.Phenotypes, code)
		} else {
			sp.UnknownPhenotypes = append(sp.UnknownPhenotypes, code)
		}
	}
	for _, code := range negated {
		if ing.maps.HPO[code] {
			sp.NegatedPhenotypes = append(sp.NegatedPhenotypes, code)
		} else {
			sp.UnknownPhenotypes = append(sp.UnknownPhenotypes, code)
		}
	}

	for _, d := range pp.Diseases {
		code := RecodeDiseaseCode(d.Term.ID)
		if code != "" {
			if ing.maps.Disease[code] {
				sp.Diseases = append(sp.Diseases, code)
			} else {
				sp.UnknownDiseases = append(sp.UnknownDiseases, code)
			}
		}
		if d.ClassOfOnset != nil && d.ClassOfOnset.ID != "" {
			onset := normalizeHPO(d.ClassOfOnset.ID)
			if ing.maps.HPO[onset] {
				sp.AgeOfOnset = append(sp.AgeOfOnset, onset)
			} else {
				sp.UnknownOnset = append(sp.UnknownOnset, onset)
			}
		}
	}

	sp.Phenotypes = catalog.SplitSet(catalog.JoinSet(sp.Phenotypes))
	sp.NegatedPhenotypes = catalog.SplitSet(catalog.JoinSet(sp.NegatedPhenotypes))
	sp.Diseases = catalog.SplitSet(catalog.JoinSet(sp.Diseases))
	sp.AgeOfOnset = catalog.SplitSet(catalog.JoinSet(sp.AgeOfOnset))
	return sp, nil
}

// partitionFeatures splits features into observed and negated codes.
// A code claimed both ways lands in observed only; the tie break does
// not depend on feature order.
func partitionFeatures(features []Feature) (observed []string, negated []string) {
	observedSet := map[string]bool{}
	negatedSet := map[string]bool{}
	for _, f := range features {
		code := normalizeHPO(f.Type.ID)
		if code == "" {
			continue
		}
		if f.Negated {
			negatedSet[code] = true
		} else {
			observedSet[code] = true
		}
	}
	for code := range observedSet {
		observed = append(observed, code)
	}
	for code := range negatedSet {
		if !observedSet[code] {
			negated = append(negated, code)
		}
	}
	return observed, negated
}

// normalizeHPO rewrites the prefix of a phenotype code to the form the
// repository stores (HP:0001250 → HP_0001250).
func normalizeHPO(code string) string {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, "HP:") {
		return "HP_" + strings.TrimPrefix(code, "HP:")
	}
	return code
}

// RecodeDiseaseCode normalizes a disease code prefix and applies the
// re-assignment table. An empty result means the code was retired
// without successor.
func RecodeDiseaseCode(code string) string {
	code = strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(code, "Orphanet:"):
		code = "ORDO_" + strings.TrimPrefix(code, "Orphanet:")
	case strings.HasPrefix(code, "ORDO:"):
		code = "ORDO_" + strings.TrimPrefix(code, "ORDO:")
	case strings.HasPrefix(code, "OMIM:"):
		code = "MIM_" + strings.TrimPrefix(code, "OMIM:")
	case strings.HasPrefix(code, "MIM:"):
		code = "MIM_" + strings.TrimPrefix(code, "MIM:")
	}
	if target, ok := lookup.DiseaseRecodes[code]; ok {
		return target
	}
	return code
}

// recodeSex maps packet sex tokens to the internal codes; anything
// else stays empty.
func recodeSex(sex string) string {
	switch strings.ToUpper(strings.TrimSpace(sex)) {
	case "FEMALE":
		return "F"
	case "MALE":
		return "M"
	case "UNKNOWN_SEX":
		return "U"
	}
	return ""
}

// birthYear keeps the year of a yyyy-mm-dd or full ISO timestamp; the
// repository stores year only.
func birthYear(dateOfBirth string) string {
	v := strings.TrimSpace(dateOfBirth)
	if i := strings.IndexAny(v, "T "); i >= 0 {
		v = v[:i]
	}
	if len(v) >= 4 && isDigits(v[:4]) {
		return v[:4]
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
