package catalog

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ern-cohorts/cohort-ingest/repository"
)

// Catalog is the live view of every prior release: all subjects,
// samples, experiments and files the repository already carries. It is
// loaded once per run and mutated only through the reconciliation
// engine's write plan.
type Catalog struct {
	Subjects    map[string]*Subject
	Samples     map[string]*Sample
	Experiments map[string]*Experiment
	Files       map[string]*File
	Releases    map[string]Release
}

// Load fetches the full catalog from the repository. A retracted
// record keeps only its identity, releases, retracted flag and
// comments; everything else is blanked on read so stale clinical
// attributes can never leak back out through a merge.
func Load(ctx context.Context, repo repository.Client) (*Catalog, error) {
	c := &Catalog{
		Subjects:    map[string]*Subject{},
		Samples:     map[string]*Sample{},
		Experiments: map[string]*Experiment{},
		Files:       map[string]*File{},
		Releases:    map[string]Release{},
	}

	releaseRows, err := repo.GetTable(ctx, TableReleases, repository.QueryOptions{})
	if err != nil {
		return nil, err
	}
	for _, r := range releaseRows {
		rel := ReleaseFromRow(r)
		c.Releases[rel.ID] = rel
	}

	subjectRows, err := repo.GetTable(ctx, TableSubjects, repository.QueryOptions{})
	if err != nil {
		return nil, err
	}
	for _, r := range subjectRows {
		s := SubjectFromRow(r)
		if s.Retracted {
			s = retractedSubject(s)
		}
		c.Subjects[s.ID] = s
	}

	infoRows, err := repo.GetTable(ctx, TableSubjectInfo, repository.QueryOptions{
		Attrs: []string{"subjectID", "dateOfBirth"},
	})
	if err != nil {
		return nil, err
	}
	for _, r := range infoRows {
		if s, ok := c.Subjects[r["subjectID"]]; ok && !s.Retracted {
			s.BirthYear = r["dateOfBirth"]
		}
	}

	sampleRows, err := repo.GetTable(ctx, TableSamples, repository.QueryOptions{})
	if err != nil {
		return nil, err
	}
	for _, r := range sampleRows {
		s := SampleFromRow(r)
		if s.Retracted {
			s = retractedSample(s)
		}
		c.Samples[s.ID] = s
	}

	experimentRows, err := repo.GetTable(ctx, TableExperiments, repository.QueryOptions{})
	if err != nil {
		return nil, err
	}
	for _, r := range experimentRows {
		e := ExperimentFromRow(r)
		c.Experiments[e.ID] = e
	}

	fileRows, err := repo.GetTable(ctx, TableFiles, repository.QueryOptions{})
	if err != nil {
		return nil, err
	}
	for _, r := range fileRows {
		f := FileFromRow(r)
		c.Files[f.ID] = f
	}

	log.WithField("subjects", len(c.Subjects)).
		WithField("samples", len(c.Samples)).
		WithField("experiments", len(c.Experiments)).
		WithField("releases", len(c.Releases)).
		Info("Loaded catalog")
	return c, nil
}

func retractedSubject(s *Subject) *Subject {
	return &Subject{
		ID:        s.ID,
		Releases:  s.Releases,
		Retracted: true,
		Comments:  s.Comments,
		Audit:     s.Audit,
	}
}

func retractedSample(s *Sample) *Sample {
	return &Sample{
		ID:        s.ID,
		Releases:  s.Releases,
		Retracted: true,
		Comments:  s.Comments,
		Audit:     s.Audit,
	}
}

// KnownSubjectIDs returns the membership set the triage rules use.
func (c *Catalog) KnownSubjectIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Subjects))
	for id := range c.Subjects {
		ids[id] = true
	}
	return ids
}

func (c *Catalog) KnownSampleIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Samples))
	for id := range c.Samples {
		ids[id] = true
	}
	return ids
}

func (c *Catalog) KnownExperimentIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Experiments))
	for id := range c.Experiments {
		ids[id] = true
	}
	return ids
}
