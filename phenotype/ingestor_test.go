package phenotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ern-cohorts/cohort-ingest/lookup"
)

func testMaps() *lookup.Maps {
	return &lookup.Maps{
		HPO: map[string]bool{
			"HP_0001250": true,
			"HP_0004322": true,
			"HP_0003577": true,
		},
		Disease: map[string]bool{
			"MIM_609200": true,
			"ORDO_1040":  true,
		},
		KnownSubjects: map[string]bool{"P1": true},
	}
}

func packet(body string) []byte {
	return []byte(`{"phenopacket": ` + body + `}`)
}

func TestIngestExtractsProfile(t *testing.T) {
	raw := packet(`{
		"id": "p1",
		"subject": {"dateOfBirth": "1994-05-01T00:00:00Z", "sex": "FEMALE"},
		"phenotypicFeatures": [
			{"type": {"id": "HP:0001250"}},
			{"type": {"id": "HP:0004322"}, "negated": true}
		],
		"diseases": [
			{"term": {"id": "OMIM:609200"}, "classOfOnset": {"id": "HP:0003577"}}
		]
	}`)

	sp, err := NewIngestor(testMaps()).Ingest("p1.json", raw)
	require.NoError(t, err)

	assert.Equal(t, "P1", sp.SubjectID)
	assert.True(t, sp.SubjectExists)
	assert.Equal(t, "F", sp.Sex)
	assert.Equal(t, "1994", sp.BirthYear)
	assert.Equal(t, []string{"HP_0001250"}, sp.Phenotypes)
	assert.Equal(t, []string{"HP_0004322"}, sp.NegatedPhenotypes)
	assert.Equal(t, []string{"MIM_609200"}, sp.Diseases)
	assert.Equal(t, []string{"HP_0003577"}, sp.AgeOfOnset)
	assert.Empty(t, sp.UnknownPhenotypes)
}

func TestIngestObservedWinsOverNegated(t *testing.T) {
	raw := packet(`{
		"id": "P1",
		"subject": {},
		"phenotypicFeatures": [
			{"type": {"id": "HP:0001250"}, "negated": true},
			{"type": {"id": "HP:0001250"}}
		]
	}`)

	sp, err := NewIngestor(testMaps()).Ingest("p1.json", raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"HP_0001250"}, sp.Phenotypes)
	assert.Empty(t, sp.NegatedPhenotypes)
}

func TestIngestCarvesOutUnknownCodes(t *testing.T) {
	raw := packet(`{
		"id": "P1",
		"subject": {},
		"phenotypicFeatures": [{"type": {"id": "HP:9999999"}}],
		"diseases": [{"term": {"id": "OMIM:999999"}, "classOfOnset": {"id": "HP:8888888"}}]
	}`)

	sp, err := NewIngestor(testMaps()).Ingest("p1.json", raw)
	require.NoError(t, err)
	assert.Empty(t, sp.Phenotypes)
	assert.Equal(t, []string{"HP_9999999"}, sp.UnknownPhenotypes)
	assert.Equal(t, []string{"MIM_999999"}, sp.UnknownDiseases)
	assert.Equal(t, []string{"HP_8888888"}, sp.UnknownOnset)
}

func TestRecodeDiseaseCode(t *testing.T) {
	assert.Equal(t, "MIM_609200", RecodeDiseaseCode("OMIM:609200"))
	assert.Equal(t, "ORDO_1040", RecodeDiseaseCode("Orphanet:1040"))
	// retired code merged into its successor
	assert.Equal(t, "MIM_609200", RecodeDiseaseCode("MIM:159000"))
	// deprecated without successor drops out
	assert.Equal(t, "", RecodeDiseaseCode("ORDO:856"))
	assert.Equal(t, "MIM_609200", RecodeDiseaseCode("MIM_609200"))
}

func TestIngestBatchPartitions(t *testing.T) {
	packets := map[string][]byte{
		"known.json":   packet(`{"id": "P1", "subject": {}}`),
		"unknown.json": packet(`{"id": "P9", "subject": {}}`),
		"broken.json":  []byte(`{`),
		"empty.json":   []byte(`{}`),
	}

	res := NewIngestor(testMaps()).IngestBatch(packets)
	require.Len(t, res.Subjects, 1)
	assert.Equal(t, "P1", res.Subjects[0].SubjectID)
	require.Len(t, res.ForReview, 1)
	assert.Equal(t, "P9", res.ForReview[0].SubjectID)
	assert.Len(t, res.Skipped, 2)
}

func TestBirthYear(t *testing.T) {
	assert.Equal(t, "1994", birthYear("1994-05-01"))
	assert.Equal(t, "2001", birthYear("2001-01-01T00:00:00Z"))
	assert.Equal(t, "", birthYear("unknown"))
	assert.Equal(t, "", birthYear(""))
}

func TestRecodePacketSex(t *testing.T) {
	assert.Equal(t, "F", recodeSex("FEMALE"))
	assert.Equal(t, "M", recodeSex("male"))
	assert.Equal(t, "U", recodeSex("UNKNOWN_SEX"))
	assert.Equal(t, "", recodeSex("OTHER_SEX"))
}
