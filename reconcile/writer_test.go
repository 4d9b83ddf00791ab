package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ern-cohorts/cohort-ingest/catalog"
	"github.com/ern-cohorts/cohort-ingest/repository"
)

type call struct {
	op    string
	table string
	rows  int
}

type mockRepo struct {
	repository.Client
	calls    []call
	failOn   string
	uploaded []byte
}

func (m *mockRepo) BatchInsert(ctx context.Context, table string, rows []repository.Row) error {
	if m.failOn == "insert:"+table {
		return errors.New("boom")
	}
	m.calls = append(m.calls, call{"insert", table, len(rows)})
	return nil
}

func (m *mockRepo) BatchUpdate(ctx context.Context, table string, rows []repository.Row) error {
	if m.failOn == "update:"+table {
		return errors.New("boom")
	}
	m.calls = append(m.calls, call{"update", table, len(rows)})
	return nil
}

func (m *mockRepo) UploadCSV(ctx context.Context, table string, payload []byte, action repository.UploadAction) error {
	m.uploaded = payload
	m.calls = append(m.calls, call{"upload", table, 0})
	return nil
}

func fullPlan() *Plan {
	return &Plan{
		InsertReleases:    []catalog.Release{{ID: "novelwgs_original"}},
		InsertSubjects:    []*catalog.Subject{{ID: "P3"}},
		UpdateSubjects:    []*catalog.Subject{{ID: "P1"}},
		SubjectInfo:       []SubjectInfoRow{{SubjectID: "P1", DateOfBirth: "1994"}},
		InsertSamples:     []*catalog.Sample{{ID: "S3"}},
		UpdateSamples:     []*catalog.Sample{{ID: "S1"}},
		InsertExperiments: []*catalog.Experiment{{ID: "E3"}},
		UpdateExperiments: []*catalog.Experiment{{ID: "E1"}},
		InsertFiles:       []*catalog.File{{ID: "EGAF3"}},
	}
}

func TestApplyWritesInForeignKeyOrder(t *testing.T) {
	repo := &mockRepo{}
	err := NewWriter(repo).Apply(context.Background(), fullPlan())
	require.NoError(t, err)

	var order []string
	for _, c := range repo.calls {
		order = append(order, c.op+":"+c.table)
	}
	assert.Equal(t, []string{
		"insert:releases",
		"insert:subjects",
		"update:subjects",
		"upload:subjectinfo",
		"insert:samples",
		"update:samples",
		"insert:experiments",
		"update:experiments",
		"insert:files",
	}, order)

	assert.Contains(t, string(repo.uploaded), "subjectID")
	assert.Contains(t, string(repo.uploaded), "P1,1994")
}

func TestApplyAbortsOnFirstFailure(t *testing.T) {
	repo := &mockRepo{failOn: "insert:samples"}
	err := NewWriter(repo).Apply(context.Background(), fullPlan())
	require.Error(t, err)

	for _, c := range repo.calls {
		assert.NotEqual(t, "experiments", c.table)
		assert.NotEqual(t, "files", c.table)
	}
}

func TestApplyEmptyPlanWritesNothing(t *testing.T) {
	repo := &mockRepo{}
	err := NewWriter(repo).Apply(context.Background(), &Plan{})
	require.NoError(t, err)
	assert.Empty(t, repo.calls)
}
