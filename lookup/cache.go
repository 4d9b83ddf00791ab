package lookup

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ern-cohorts/cohort-ingest/repository"
)

// Vocabulary and registry tables on the repository side.
const (
	tableERNs          = "erns"
	tableOrganisations = "organisations"
	tableTissueTypes   = "tissueTypes"
	tableMaterials     = "materialTypes"
	tablePathological  = "pathologicalStates"
	tableSeqTypes      = "seqTypes"
	tableFileFormats   = "fileFormats"
	tableReleases      = "releases"
	tableAnatomical    = "anatomicalLocations"
	tableHPO           = "hpoTerms"
	tableDiseases      = "diseaseTerms"
	tableSexCodes      = "sexCodes"
	tableSubjects      = "subjects"
	tableSamples       = "samples"
	tableExperiments   = "experiments"
)

// RecodeMap resolves raw submitter values to canonical vocabulary
// identifiers. Keys are lowercased and whitespace-stripped.
type RecodeMap map[string]string

// Lookup normalizes v and resolves it. A miss returns ok=false; the
// caller decides whether that warns, blocks or is stored as an
// exception.
func (m RecodeMap) Lookup(v string) (string, bool) {
	canonical, ok := m[Normalize(v)]
	if !ok || canonical == "" {
		return "", false
	}
	return canonical, true
}

// Normalize is the one normalization every recode lookup applies.
func Normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizeOrg additionally collapses inner whitespace to hyphens,
// matching how organisations are keyed in the repository.
func NormalizeOrg(v string) string {
	return strings.Join(strings.Fields(Normalize(v)), "-")
}

// Maps is the read-only product of one BuildMaps call, shared by every
// ingestor for the rest of the run.
type Maps struct {
	ERN          RecodeMap
	Org          RecodeMap
	Tissue       RecodeMap
	Material     RecodeMap
	Pathological RecodeMap
	SeqType      RecodeMap
	FileFormat   RecodeMap
	Release      RecodeMap
	Anatomical   RecodeMap
	SexMap       RecodeMap

	HPO     map[string]bool
	Disease map[string]bool
	Sex     map[string]bool

	KnownSubjects    map[string]bool
	KnownSamples     map[string]bool
	KnownExperiments map[string]bool
}

// BuildMaps fetches every controlled vocabulary once and builds the
// recode maps, seeded with the known spelling variants. Any fetch
// failure is fatal for the run.
func BuildMaps(ctx context.Context, repo repository.Client) (*Maps, error) {
	m := &Maps{}
	var err error

	if m.ERN, err = buildRecodeMap(ctx, repo, tableERNs, ernVariants); err != nil {
		return nil, err
	}
	if m.Org, err = buildRecodeMap(ctx, repo, tableOrganisations, nil); err != nil {
		return nil, err
	}
	if m.Tissue, err = buildRecodeMap(ctx, repo, tableTissueTypes, tissueVariants); err != nil {
		return nil, err
	}
	if m.Material, err = buildRecodeMap(ctx, repo, tableMaterials, materialVariants); err != nil {
		return nil, err
	}
	if m.Pathological, err = buildRecodeMap(ctx, repo, tablePathological, pathologicalVariants); err != nil {
		return nil, err
	}
	if m.SeqType, err = buildRecodeMap(ctx, repo, tableSeqTypes, seqTypeVariants); err != nil {
		return nil, err
	}
	if m.FileFormat, err = buildRecodeMap(ctx, repo, tableFileFormats, fileFormatVariants); err != nil {
		return nil, err
	}
	if m.Release, err = buildRecodeMap(ctx, repo, tableReleases, nil); err != nil {
		return nil, err
	}
	if m.Anatomical, err = buildRecodeMap(ctx, repo, tableAnatomical, nil); err != nil {
		return nil, err
	}
	if m.SexMap, err = buildRecodeMap(ctx, repo, tableSexCodes, sexVariants); err != nil {
		return nil, err
	}

	if m.HPO, err = buildMembershipSet(ctx, repo, tableHPO); err != nil {
		return nil, err
	}
	if m.Disease, err = buildMembershipSet(ctx, repo, tableDiseases); err != nil {
		return nil, err
	}
	if m.Sex, err = buildMembershipSet(ctx, repo, tableSexCodes); err != nil {
		return nil, err
	}
	for k, v := range sexVariants {
		if m.Sex[v] {
			// keep spelling variants resolvable through the set too
			m.Sex[k] = true
		}
	}

	if m.KnownSubjects, err = buildIDSet(ctx, repo, tableSubjects, "subjectID"); err != nil {
		return nil, err
	}
	if m.KnownSamples, err = buildIDSet(ctx, repo, tableSamples, "sampleID"); err != nil {
		return nil, err
	}
	if m.KnownExperiments, err = buildIDSet(ctx, repo, tableExperiments, "experimentID"); err != nil {
		return nil, err
	}

	log.WithField("hpoTerms", len(m.HPO)).
		WithField("diseaseTerms", len(m.Disease)).
		WithField("knownSubjects", len(m.KnownSubjects)).
		Info("Built lookup maps")
	return m, nil
}

// buildRecodeMap loads id and label for every vocabulary entry and
// keys both, lowercased, to the canonical id, then overlays the seed
// variants. Seeds never shadow a real vocabulary entry.
func buildRecodeMap(ctx context.Context, repo repository.Client, table string, variants map[string]string) (RecodeMap, error) {
	rows, err := repo.GetTable(ctx, table, repository.QueryOptions{Attrs: []string{"id", "label"}})
	if err != nil {
		return nil, fmt.Errorf("fetching vocabulary %s: %w", table, err)
	}
	m := RecodeMap{}
	for k, v := range variants {
		m[Normalize(k)] = v
	}
	for _, r := range rows {
		id := r["id"]
		if id == "" {
			continue
		}
		m[Normalize(id)] = id
		if label := r["label"]; label != "" {
			m[Normalize(label)] = id
		}
	}
	return m, nil
}

func buildMembershipSet(ctx context.Context, repo repository.Client, table string) (map[string]bool, error) {
	rows, err := repo.GetTable(ctx, table, repository.QueryOptions{Attrs: []string{"id"}})
	if err != nil {
		return nil, fmt.Errorf("fetching ontology %s: %w", table, err)
	}
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r["id"] != "" {
			set[r["id"]] = true
		}
	}
	return set, nil
}

func buildIDSet(ctx context.Context, repo repository.Client, table string, idAttr string) (map[string]bool, error) {
	rows, err := repo.GetTable(ctx, table, repository.QueryOptions{Attrs: []string{idAttr}})
	if err != nil {
		return nil, fmt.Errorf("fetching %s identifiers: %w", table, err)
	}
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r[idAttr] != "" {
			set[r[idAttr]] = true
		}
	}
	return set, nil
}
