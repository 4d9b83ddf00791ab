package reconcile

import (
	"context"
	"fmt"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/ern-cohorts/cohort-ingest/catalog"
	"github.com/ern-cohorts/cohort-ingest/repository"
)

// Writer applies a plan to the repository in foreign-key order:
// releases → subjects → subjectinfo → samples → experiments → files.
// The repository client retries each batch; if retries are exhausted
// the run aborts here and staging stays unprocessed, so the next run
// replays the same batch.
type Writer struct {
	repo repository.Client
}

func NewWriter(repo repository.Client) *Writer {
	return &Writer{repo: repo}
}

func (w *Writer) Apply(ctx context.Context, plan *Plan) error {
	if plan.Empty() {
		log.Info("Write plan is empty, nothing to apply")
		return nil
	}

	if len(plan.InsertReleases) > 0 {
		rows := make([]repository.Row, 0, len(plan.InsertReleases))
		for _, rel := range plan.InsertReleases {
			rows = append(rows, rel.Row())
		}
		if err := w.repo.BatchInsert(ctx, catalog.TableReleases, rows); err != nil {
			return fmt.Errorf("inserting releases: %w", err)
		}
		log.WithField("rows", len(rows)).Info("Inserted releases")
	}

	if err := writeBatch(ctx, w.repo.BatchInsert, catalog.TableSubjects, subjectRows(plan.InsertSubjects), "Inserted subjects"); err != nil {
		return err
	}
	if err := writeBatch(ctx, w.repo.BatchUpdate, catalog.TableSubjects, subjectRows(plan.UpdateSubjects), "Updated subjects"); err != nil {
		return err
	}

	if len(plan.SubjectInfo) > 0 {
		payload, err := gocsv.MarshalBytes(&plan.SubjectInfo)
		if err != nil {
			return fmt.Errorf("building subjectinfo upload: %w", err)
		}
		if err := w.repo.UploadCSV(ctx, catalog.TableSubjectInfo, payload, repository.AddUpdateExisting); err != nil {
			return fmt.Errorf("uploading subjectinfo: %w", err)
		}
		log.WithField("rows", len(plan.SubjectInfo)).Info("Uploaded subjectinfo")
	}

	if err := writeBatch(ctx, w.repo.BatchInsert, catalog.TableSamples, sampleRows(plan.InsertSamples), "Inserted samples"); err != nil {
		return err
	}
	if err := writeBatch(ctx, w.repo.BatchUpdate, catalog.TableSamples, sampleRows(plan.UpdateSamples), "Updated samples"); err != nil {
		return err
	}

	if err := writeBatch(ctx, w.repo.BatchInsert, catalog.TableExperiments, experimentRows(plan.InsertExperiments), "Inserted experiments"); err != nil {
		return err
	}
	if err := writeBatch(ctx, w.repo.BatchUpdate, catalog.TableExperiments, experimentRows(plan.UpdateExperiments), "Updated experiments"); err != nil {
		return err
	}

	if err := writeBatch(ctx, w.repo.BatchInsert, catalog.TableFiles, fileRows(plan.InsertFiles), "Inserted files"); err != nil {
		return err
	}

	return nil
}

type batchFn func(ctx context.Context, table string, rows []repository.Row) error

func writeBatch(ctx context.Context, write batchFn, table string, rows []repository.Row, doneMsg string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := write(ctx, table, rows); err != nil {
		return fmt.Errorf("writing %s: %w", table, err)
	}
	log.WithField("rows", len(rows)).Info(doneMsg)
	return nil
}

func subjectRows(subjects []*catalog.Subject) []repository.Row {
	rows := make([]repository.Row, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, s.Row())
	}
	return rows
}

func sampleRows(samples []*catalog.Sample) []repository.Row {
	rows := make([]repository.Row, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, s.Row())
	}
	return rows
}

func experimentRows(experiments []*catalog.Experiment) []repository.Row {
	rows := make([]repository.Row, 0, len(experiments))
	for _, e := range experiments {
		rows = append(rows, e.Row())
	}
	return rows
}

func fileRows(files []*catalog.File) []repository.Row {
	rows := make([]repository.Row, 0, len(files))
	for _, f := range files {
		rows = append(rows, f.Row())
	}
	return rows
}
