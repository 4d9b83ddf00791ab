package pedigree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

var knownSubjects = map[string]bool{
	"P1": true,
	"P2": true,
	"P3": true,
}

func TestParseFileRecodesSexAndAffection(t *testing.T) {
	content := "F1 P1 P2 P3 1 2\n" +
		"F1 P2 0 0 2 1\n" +
		"F1 P3 0 0 other -9\n"

	res := ParseFile("fam1.ped", content, knownSubjects)
	require.Len(t, res.Records, 3)
	assert.Empty(t, res.Anomalies)
	assert.Zero(t, res.SkippedLines)

	p1 := res.Records[0]
	assert.Equal(t, "M", p1.Sex)
	assert.Equal(t, null.BoolFrom(true), p1.Affection)
	assert.Equal(t, "P2", p1.PaternalID)
	assert.Equal(t, "P3", p1.MaternalID)
	assert.True(t, p1.Upload)

	p2 := res.Records[1]
	assert.Equal(t, "F", p2.Sex)
	assert.Equal(t, null.BoolFrom(false), p2.Affection)

	p3 := res.Records[2]
	assert.Equal(t, "U", p3.Sex)
	assert.False(t, p3.Affection.Valid)
}

func TestParseFileSkipsMalformedLines(t *testing.T) {
	content := "F1 P1 0 0 1 2\n" +
		"F1 P2 0 0 1\n" +
		"just some text\n" +
		"\n"

	res := ParseFile("fam1.ped", content, knownSubjects)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, 2, res.SkippedLines)
}

func TestParseFileRecordsAnomalies(t *testing.T) {
	content := "F1 P1 0 0 3 5\n"

	res := ParseFile("fam1.ped", content, knownSubjects)
	require.Len(t, res.Records, 1)
	require.Len(t, res.Anomalies, 2)
	assert.Equal(t, "sex", res.Anomalies[0].Field)
	assert.Equal(t, "3", res.Anomalies[0].Value)
	assert.Equal(t, "affection", res.Anomalies[1].Field)
	assert.Empty(t, res.Records[0].Sex)
	assert.False(t, res.Records[0].Affection.Valid)
}

func TestParseFileBlanksUnknownParentsButKeepsRow(t *testing.T) {
	content := "F1 P1 P9 0 1 2\n"

	res := ParseFile("fam1.ped", content, knownSubjects)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.True(t, rec.Upload)
	assert.Empty(t, rec.PaternalID)
	assert.Empty(t, rec.MaternalID)
}

func TestParseFileExcludesUnknownAndFamilyTokenSubjects(t *testing.T) {
	content := "F1 P9 0 0 1 2\n" +
		"F1 FAM001 0 0 1 2\n"

	res := ParseFile("fam1.ped", content, knownSubjects)
	require.Len(t, res.Records, 2)
	assert.False(t, res.Records[0].Upload)
	assert.False(t, res.Records[1].Upload)
}

func TestParseFileUppercasesIdentifiers(t *testing.T) {
	content := "F1 p1 p2 0 1 2\n"

	res := ParseFile("fam1.ped", content, knownSubjects)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "P1", res.Records[0].SubjectID)
	assert.Equal(t, "P2", res.Records[0].PaternalID)
}

func TestMergeCollapsesDuplicateLinesWithinFile(t *testing.T) {
	res := ParseFile("fam1.ped", "F1 P1 0 0 1 2\nF1 P1 0 0 1 2\n", knownSubjects)
	merged := Merge([]*Result{res})
	assert.Len(t, merged, 1)
}

func TestMergeUnionsFamilyIDsAcrossFiles(t *testing.T) {
	a := ParseFile("fam1.ped", "F1 P1 0 0 1 2\n", knownSubjects)
	b := ParseFile("fam2.ped", "F2 P1 0 0 1 2\n", knownSubjects)

	merged := Merge([]*Result{a, b})
	require.Len(t, merged, 1)
	assert.Equal(t, "F1,F2", merged[0].FamilyID)
}

func TestMergeMostParentalDataWins(t *testing.T) {
	a := ParseFile("fam1.ped", "F1 P1 0 0 1 0\n", knownSubjects)
	b := ParseFile("fam2.ped", "F1 P1 P2 P3 1 2\n", knownSubjects)

	merged := Merge([]*Result{a, b})
	require.Len(t, merged, 1)
	assert.Equal(t, "P2", merged[0].PaternalID)
	assert.Equal(t, "P3", merged[0].MaternalID)
	assert.Equal(t, null.BoolFrom(true), merged[0].Affection)
}

func TestMergeDropsNonUploadRecords(t *testing.T) {
	res := ParseFile("fam1.ped", "F1 P9 0 0 1 2\nF1 P1 0 0 1 2\n", knownSubjects)
	merged := Merge([]*Result{res})
	require.Len(t, merged, 1)
	assert.Equal(t, "P1", merged[0].SubjectID)
}
