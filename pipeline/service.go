package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"

	"github.com/ern-cohorts/cohort-ingest/catalog"
	"github.com/ern-cohorts/cohort-ingest/filesource"
	"github.com/ern-cohorts/cohort-ingest/lookup"
	"github.com/ern-cohorts/cohort-ingest/pedigree"
	"github.com/ern-cohorts/cohort-ingest/phenotype"
	"github.com/ern-cohorts/cohort-ingest/reconcile"
	"github.com/ern-cohorts/cohort-ingest/repository"
	"github.com/ern-cohorts/cohort-ingest/shipment"
)

// Exit codes of one pipeline run.
const (
	ExitOK = 0
	// ExitFatal is a configuration or transport failure; staging rows
	// stay unprocessed and the next run replays them.
	ExitFatal = 1
	// ExitConflicts means the run finished but left a non-empty review
	// queue for the curators.
	ExitConflicts = 2
	// ExitValidation means a validation failure blocked the ingest
	// before any write.
	ExitValidation = 3
)

// Delivery prefixes on the remote file source.
const (
	shipmentPrefix  = "shipments"
	pedigreePrefix  = "pedigrees"
	phenotypePrefix = "phenopackets"
)

// Service wires the full run: lookup cache → ingestors →
// reconciliation engine → writer. One Service handles exactly one run;
// concurrent runs against the same catalog are serialized externally.
type Service struct {
	repo     repository.Client
	files    filesource.Client
	policy   reconcile.Policy
	jobID    string
	denyList []string
	registry metrics.Registry
}

func NewService(repo repository.Client, files filesource.Client, policy reconcile.Policy, jobID string, denyList []string) *Service {
	return &Service{
		repo:     repo,
		files:    files,
		policy:   policy,
		jobID:    jobID,
		denyList: denyList,
		registry: metrics.NewRegistry(),
	}
}

// Run executes the batch pipeline and returns the process exit code.
func (s *Service) Run(ctx context.Context) int {
	if err := s.repo.Healthcheck(ctx); err != nil {
		log.WithError(err).Error("Repository healthcheck failed")
		return ExitFatal
	}
	if err := s.files.Healthcheck(ctx); err != nil {
		log.WithError(err).Error("Remote file source healthcheck failed")
		return ExitFatal
	}

	maps, err := lookup.BuildMaps(ctx, s.repo)
	if err != nil {
		log.WithError(err).Error("Building lookup maps failed")
		return ExitFatal
	}
	cat, err := catalog.Load(ctx, s.repo)
	if err != nil {
		log.WithError(err).Error("Loading catalog failed")
		return ExitFatal
	}

	shipments, code := s.ingestShipments(ctx, maps)
	if code != ExitOK {
		return code
	}
	pedigrees, code := s.ingestPedigrees(ctx, maps)
	if code != ExitOK {
		return code
	}
	phenotypes, code := s.ingestPhenotypes(ctx, maps)
	if code != ExitOK {
		return code
	}

	engine := reconcile.NewEngine(cat, s.policy, time.Now(), s.jobID)
	plan := engine.Reconcile(shipments, pedigrees, phenotypes)
	s.counter("reconcile.reviewQueue").Inc(int64(len(plan.ReviewQueue)))

	if err := reconcile.NewWriter(s.repo).Apply(ctx, plan); err != nil {
		log.WithError(err).Error("Applying write plan failed")
		return ExitFatal
	}

	s.reportCounters()
	if plan.HasConflicts() {
		for _, c := range plan.ReviewQueue {
			log.WithField("kind", string(c.Kind)).
				WithField("key", c.Key).
				WithField("field", c.Field).
				WithField("catalog", c.CatalogValue).
				WithField("incoming", c.IncomingValue).
				WithField("source", c.Source).
				Warn(c.Reason)
		}
		log.WithField("conflicts", len(plan.ReviewQueue)).Warn("Run finished with unresolved merge conflicts")
		return ExitConflicts
	}
	log.Info("Run finished")
	return ExitOK
}

func (s *Service) ingestShipments(ctx context.Context, maps *lookup.Maps) ([]*shipment.Result, int) {
	entries, err := s.files.List(ctx, shipmentPrefix)
	if err != nil {
		log.WithError(err).Error("Listing shipment manifests failed")
		return nil, ExitFatal
	}

	var results []*shipment.Result
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name, ".tsv") && !strings.HasSuffix(entry.Name, ".txt") {
			continue
		}
		content, err := s.files.ReadText(ctx, entry.Key)
		if err != nil {
			log.WithError(err).WithField("file", entry.Name).Error("Reading manifest failed")
			return nil, ExitFatal
		}
		rows, err := shipment.ParseManifest(strings.NewReader(content))
		if err != nil {
			log.WithError(err).WithField("file", entry.Name).Error("Manifest does not parse")
			return nil, ExitValidation
		}
		res, err := shipment.Ingest(rows, maps)
		if err != nil {
			log.WithError(err).WithField("file", entry.Name).Error("Manifest ingest blocked")
			return nil, ExitValidation
		}
		s.counter("ingest.recodeMisses").Inc(int64(len(res.RecodeMisses)))
		s.counter("ingest.unresolvedRows").Inc(int64(len(res.Unresolved)))
		results = append(results, res)
	}
	return results, ExitOK
}

func (s *Service) ingestPedigrees(ctx context.Context, maps *lookup.Maps) ([]pedigree.Record, int) {
	entries, err := filesource.DiscoverPedigrees(ctx, s.files, pedigreePrefix)
	if err != nil {
		log.WithError(err).Error("Listing pedigree files failed")
		return nil, ExitFatal
	}

	var results []*pedigree.Result
	for _, entry := range entries {
		content, err := s.files.ReadText(ctx, entry.Key)
		if err != nil {
			log.WithError(err).WithField("file", entry.Name).Error("Reading pedigree file failed")
			return nil, ExitFatal
		}
		res := pedigree.ParseFile(entry.Name, content, maps.KnownSubjects)
		s.counter("ingest.skippedPedigreeLines").Inc(int64(res.SkippedLines))
		s.counter("ingest.pedigreeAnomalies").Inc(int64(len(res.Anomalies)))
		results = append(results, res)
	}
	return pedigree.Merge(results), ExitOK
}

func (s *Service) ingestPhenotypes(ctx context.Context, maps *lookup.Maps) (*phenotype.Result, int) {
	entries, err := filesource.DiscoverPhenotypePackets(ctx, s.files, phenotypePrefix, s.denyList)
	if err != nil {
		log.WithError(err).Error("Listing phenotype packets failed")
		return nil, ExitFatal
	}

	packets := map[string][]byte{}
	for _, entry := range entries {
		content, err := s.files.ReadText(ctx, entry.Key)
		if err != nil {
			log.WithError(err).WithField("file", entry.Name).Error("Reading phenotype packet failed")
			return nil, ExitFatal
		}
		packets[entry.Name] = []byte(content)
	}

	res := phenotype.NewIngestor(maps).IngestBatch(packets)
	s.counter("ingest.skippedPackets").Inc(int64(len(res.Skipped)))
	return res, ExitOK
}

func (s *Service) counter(name string) metrics.Counter {
	return metrics.GetOrRegisterCounter(name, s.registry)
}

func (s *Service) reportCounters() {
	s.registry.Each(func(name string, metric interface{}) {
		if c, ok := metric.(metrics.Counter); ok {
			log.WithField("count", c.Count()).Info(name)
		}
	})
}
