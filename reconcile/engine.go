package reconcile

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"

	"github.com/ern-cohorts/cohort-ingest/catalog"
	"github.com/ern-cohorts/cohort-ingest/pedigree"
	"github.com/ern-cohorts/cohort-ingest/phenotype"
	"github.com/ern-cohorts/cohort-ingest/shipment"
)

// SexUnionPolicy decides what happens when the catalog already carries
// a union sex token (e.g. "F,M" from prior merges) and a packet or
// pedigree claims one of its members.
type SexUnionPolicy string

const (
	// SexUnionReview routes the conflict to the review queue.
	SexUnionReview SexUnionPolicy = "review"
	// SexUnionPreferSpecific narrows the union to the incoming member.
	SexUnionPreferSpecific SexUnionPolicy = "prefer-specific"
)

// PhenotypeReplacePolicy decides whether a packet re-ingest that no
// longer carries a code deletes it from the catalog.
type PhenotypeReplacePolicy string

const (
	// PhenotypeReplace mirrors upstream semantics: packets are
	// re-emitted in full per release, so the catalog value is replaced
	// wholesale.
	PhenotypeReplace PhenotypeReplacePolicy = "replace"
	// PhenotypePreserve unions instead, keeping codes that were never
	// re-emitted.
	PhenotypePreserve PhenotypeReplacePolicy = "preserve"
)

type Policy struct {
	SexUnion         SexUnionPolicy
	PhenotypeReplace PhenotypeReplacePolicy
}

func DefaultPolicy() Policy {
	return Policy{SexUnion: SexUnionReview, PhenotypeReplace: PhenotypeReplace}
}

// Engine merges ingested staging frames with the live catalog and
// produces an idempotent write plan. It is the only component that
// stages mutations; ingestors only ever produce staging frames.
type Engine struct {
	cat    *catalog.Catalog
	policy Policy
	stamp  string
	jobID  string

	plan *Plan

	// working copies of catalog records touched this run, so repeated
	// merges against the same record compose
	workSubjects    map[string]*catalog.Subject
	workSamples     map[string]*catalog.Sample
	workExperiments map[string]*catalog.Experiment
	dirtySubjects   map[string]bool
	dirtySamples    map[string]bool
	dirtyExperiment map[string]bool

	// records already planned for insert this run, so the same entity
	// arriving in a second manifest folds into one row
	stagedSubjects    map[string]*catalog.Subject
	stagedSamples     map[string]*catalog.Sample
	stagedExperiments map[string]*catalog.Experiment
	stagedFiles       map[string]*catalog.File

	birthYears map[string]string
}

// NewEngine builds an engine over the loaded catalog. All audit stamps
// in the resulting plan use the single runTime clock.
func NewEngine(cat *catalog.Catalog, policy Policy, runTime time.Time, jobID string) *Engine {
	return &Engine{
		cat:               cat,
		policy:            policy,
		stamp:             runTime.UTC().Format("2006-01-02T15:04:05Z"),
		jobID:             jobID,
		plan:              &Plan{},
		workSubjects:      map[string]*catalog.Subject{},
		workSamples:       map[string]*catalog.Sample{},
		workExperiments:   map[string]*catalog.Experiment{},
		dirtySubjects:     map[string]bool{},
		dirtySamples:      map[string]bool{},
		dirtyExperiment:   map[string]bool{},
		stagedSubjects:    map[string]*catalog.Subject{},
		stagedSamples:     map[string]*catalog.Sample{},
		stagedExperiments: map[string]*catalog.Experiment{},
		stagedFiles:       map[string]*catalog.File{},
		birthYears:        map[string]string{},
	}
}

// Reconcile runs the full merge: shipments first (they may introduce
// the subjects the other inputs reference), then pedigree records,
// then phenotype packets.
func (e *Engine) Reconcile(shipments []*shipment.Result, pedigrees []pedigree.Record, phenotypes *phenotype.Result) *Plan {
	for _, res := range shipments {
		e.applyShipment(res)
	}
	e.applyPedigrees(pedigrees)
	if phenotypes != nil {
		e.applyPhenotypes(phenotypes)
	}
	e.assemble()
	return e.plan
}

func (e *Engine) applyShipment(res *shipment.Result) {
	for _, rel := range res.Releases {
		if _, ok := e.cat.Releases[rel.ID]; ok {
			continue
		}
		if !containsRelease(e.plan.InsertReleases, rel.ID) {
			e.plan.InsertReleases = append(e.plan.InsertReleases, rel)
		}
	}

	for _, s := range res.NewSubjects {
		if staged, ok := e.stagedSubjects[s.ID]; ok {
			mergeStagedSubject(staged, s)
			continue
		}
		e.insertAudit(&s.Audit)
		e.plan.InsertSubjects = append(e.plan.InsertSubjects, s)
		e.stagedSubjects[s.ID] = s
	}

	for _, s := range res.NewSamples {
		if staged, ok := e.stagedSamples[s.ID]; ok {
			mergeStagedSample(staged, s)
			continue
		}
		if !e.subjectResolvable(s.SubjectID) {
			e.plan.review(Conflict{
				Kind: SampleConflict, Key: s.ID, Field: "subjectID",
				IncomingValue: s.SubjectID, Source: "shipment",
				Reason: "owning subject is neither in the catalog nor in this batch",
			})
			continue
		}
		e.insertAudit(&s.Audit)
		e.plan.InsertSamples = append(e.plan.InsertSamples, s)
		e.stagedSamples[s.ID] = s
	}

	for _, ex := range res.NewExperiments {
		e.insertExperiment(ex)
	}

	for _, u := range res.Updates {
		e.applyShipmentUpdate(u)
	}

	for _, f := range res.NewFiles {
		e.stageFile(f)
	}

	for _, u := range res.Unresolved {
		e.plan.review(Conflict{
			Kind: SubjectConflict, Key: u.SubjectID, Field: "subjectID",
			IncomingValue: u.SubjectID,
			Source:        fmt.Sprintf("shipment line %d", u.Line),
			Reason:        u.Reason,
		})
	}
}

func (e *Engine) insertExperiment(ex *catalog.Experiment) {
	if staged, ok := e.stagedExperiments[ex.ID]; ok {
		staged.Releases = catalog.UnionSet(staged.Releases, ex.Releases)
		return
	}
	if !e.sampleResolvable(ex.SampleID) {
		e.plan.review(Conflict{
			Kind: ExperimentConflict, Key: ex.ID, Field: "sampleID",
			IncomingValue: ex.SampleID, Source: "shipment",
			Reason: "owning sample is neither in the catalog nor in this batch",
		})
		return
	}
	e.insertAudit(&ex.Audit)
	e.plan.InsertExperiments = append(e.plan.InsertExperiments, ex)
	e.stagedExperiments[ex.ID] = ex
}

func (e *Engine) applyShipmentUpdate(u shipment.Update) {
	source := fmt.Sprintf("shipment line %d", u.Line)

	if u.SubjectExists {
		e.mergeSubjectShipment(u.Subject, source)
	}
	// old subject + new sample needs no merge here: the sample is
	// already staged for insert
	if u.SampleExists {
		e.mergeSample(u.Sample, source)
	}
	if u.Experiment != nil && u.Experiment.ID != "" {
		switch {
		case u.ExperimentExists:
			e.mergeExperiment(u.Experiment, source)
		case u.SampleExists:
			// old sample, new experiment
			e.insertExperiment(u.Experiment)
		}
	}
}

// mergeSubjectShipment folds a shipment row into an existing subject:
// release membership, claimed sex, and submitter provenance when the
// catalog has none.
func (e *Engine) mergeSubjectShipment(in *catalog.Subject, source string) {
	s, ok := e.workSubject(in.ID)
	if !ok {
		return
	}
	if s.Retracted {
		e.mergeRetractedSubject(s, in.Releases, source)
		return
	}
	e.mergeReleases(&s.Releases, in.Releases, subjectDirty(e, s.ID))
	e.mergeSex(&s.Sex, in.Sex, SubjectConflict, s.ID, source, subjectDirty(e, s.ID))
	fillIfEmpty(&s.Organisation, in.Organisation, subjectDirty(e, s.ID))
	fillIfEmpty(&s.ERN, in.ERN, subjectDirty(e, s.ID))
}

// mergeRetractedSubject allows only release and comment transitions;
// anything clinical is dropped with a warning.
func (e *Engine) mergeRetractedSubject(s *catalog.Subject, releases []string, source string) {
	log.WithField("subjectID", s.ID).WithField("source", source).
		Warn("Subject is retracted; keeping only release membership from incoming record")
	e.mergeReleases(&s.Releases, releases, subjectDirty(e, s.ID))
}

func (e *Engine) mergeSample(in *catalog.Sample, source string) {
	s, ok := e.workSample(in.ID)
	if !ok {
		return
	}
	if s.Retracted {
		log.WithField("sampleID", s.ID).WithField("source", source).
			Warn("Sample is retracted; keeping only release membership from incoming record")
		e.mergeReleases(&s.Releases, in.Releases, sampleDirty(e, s.ID))
		return
	}

	dirty := sampleDirty(e, s.ID)

	// auto-mergeable columns: set union
	e.mergeReleases(&s.Releases, in.Releases, dirty)
	mergeSet(&s.Batch, in.Batch, dirty)
	mergeSet(&s.AlternativeIdentifiers, in.AlternativeIdentifiers, dirty)

	// potential-conflict columns: fill null, noop on equal, review on
	// disagreement
	e.mergeGuarded(SampleConflict, s.ID, source, "subjectID", &s.SubjectID, in.SubjectID, dirty)
	e.mergeGuarded(SampleConflict, s.ID, source, "tissueType", &s.TissueType, in.TissueType, dirty)
	e.mergeGuarded(SampleConflict, s.ID, source, "materialType", &s.MaterialType, in.MaterialType, dirty)
	e.mergeGuarded(SampleConflict, s.ID, source, "extractedProtocol", &s.ExtractedProtocol, in.ExtractedProtocol, dirty)
	e.mergeGuarded(SampleConflict, s.ID, source, "pathologicalState", &s.PathologicalState, in.PathologicalState, dirty)
	e.mergeGuardedFloat(SampleConflict, s.ID, source, "percentageTumorCells", &s.PercentageTumorCells, in.PercentageTumorCells, dirty)
	if e.mergeGuarded(SampleConflict, s.ID, source, "anatomicalLocation", &s.AnatomicalLocation, in.AnatomicalLocation, dirty) {
		s.AnatomicalLocationComment = in.AnatomicalLocationComment
	}

	fillIfEmpty(&s.Organisation, in.Organisation, dirty)
	fillIfEmpty(&s.ERN, in.ERN, dirty)
}

// mergeExperiment: existing experiments accept only release
// membership; any other differing value goes to review.
func (e *Engine) mergeExperiment(in *catalog.Experiment, source string) {
	ex, ok := e.workExperiment(in.ID)
	if !ok {
		return
	}
	dirty := experimentDirty(e, ex.ID)
	e.mergeReleases(&ex.Releases, in.Releases, dirty)

	fields := []struct {
		name     string
		current  string
		incoming string
	}{
		{"sampleID", ex.SampleID, in.SampleID},
		{"captureKit", ex.CaptureKit, in.CaptureKit},
		{"libraryType", ex.LibraryType, in.LibraryType},
		{"libraryLayout", ex.LibraryLayout, in.LibraryLayout},
		{"sequencingCenter", ex.SequencingCenter, in.SequencingCenter},
		{"sequencer", ex.Sequencer, in.Sequencer},
		{"seqType", ex.SeqType, in.SeqType},
	}
	for _, f := range fields {
		if f.incoming != "" && f.current != "" && f.incoming != f.current {
			e.plan.review(Conflict{
				Kind: ExperimentConflict, Key: ex.ID, Field: f.name,
				CatalogValue: f.current, IncomingValue: f.incoming,
				Source: source, Reason: "existing experiments accept no field changes",
			})
		}
	}
}

func (e *Engine) stageFile(f *catalog.File) {
	if existing, ok := e.cat.Files[f.ID]; ok {
		if existing.MD5 != f.MD5 || existing.Path != f.Path {
			e.plan.review(Conflict{
				Kind: FileConflict, Key: f.ID, Field: "md5",
				CatalogValue: existing.MD5, IncomingValue: f.MD5,
				Source: "shipment", Reason: "existing files accept no changes",
			})
		}
		return
	}
	if staged, ok := e.stagedFiles[f.ID]; ok {
		if staged.MD5 != f.MD5 || staged.Path != f.Path {
			e.plan.review(Conflict{
				Kind: FileConflict, Key: f.ID, Field: "md5",
				CatalogValue: staged.MD5, IncomingValue: f.MD5,
				Source: "shipment", Reason: "file delivered twice with differing content",
			})
			return
		}
		staged.Releases = catalog.UnionSet(staged.Releases, f.Releases)
		return
	}
	if f.ExperimentID != "" && !e.experimentResolvable(f.ExperimentID) {
		e.plan.review(Conflict{
			Kind: FileConflict, Key: f.ID, Field: "experimentID",
			IncomingValue: f.ExperimentID, Source: "shipment",
			Reason: "referenced experiment is neither in the catalog nor in this batch",
		})
		return
	}
	e.insertAudit(&f.Audit)
	e.plan.InsertFiles = append(e.plan.InsertFiles, f)
	e.stagedFiles[f.ID] = f
}

func (e *Engine) applyPedigrees(records []pedigree.Record) {
	records = e.excludeParentCycles(records)

	for _, rec := range records {
		if !rec.Upload {
			continue
		}
		s, ok := e.workSubject(rec.SubjectID)
		if !ok {
			e.plan.review(Conflict{
				Kind: SubjectConflict, Key: rec.SubjectID, Field: "subjectID",
				IncomingValue: rec.SubjectID, Source: "pedigree " + rec.File,
				Reason: "pedigree individual is not in the catalog",
			})
			continue
		}
		if s.Retracted {
			log.WithField("subjectID", s.ID).WithField("file", rec.File).
				Warn("Subject is retracted; dropping pedigree update")
			continue
		}
		source := "pedigree " + rec.File
		dirty := subjectDirty(e, s.ID)
		e.mergeGuarded(SubjectConflict, s.ID, source, "fid", &s.FamilyID, rec.FamilyID, dirty)
		e.mergeGuarded(SubjectConflict, s.ID, source, "pid", &s.PaternalID, rec.PaternalID, dirty)
		e.mergeGuarded(SubjectConflict, s.ID, source, "mid", &s.MaternalID, rec.MaternalID, dirty)
		e.mergeSex(&s.Sex, rec.Sex, SubjectConflict, s.ID, source, dirty)
		e.mergeAffection(s, rec.Affection, source, dirty)
	}
}

// excludeParentCycles drops pedigree records whose parent links would
// close a cycle (A→B→A), routing every involved row to review.
// Malformed inputs do this; a silent write would corrupt the DAG.
func (e *Engine) excludeParentCycles(records []pedigree.Record) []pedigree.Record {
	parents := map[string][]string{}
	for id, s := range e.cat.Subjects {
		for _, p := range []string{s.PaternalID, s.MaternalID} {
			if p != "" {
				parents[id] = append(parents[id], p)
			}
		}
	}
	recorded := map[string]pedigree.Record{}
	for _, rec := range records {
		if !rec.Upload {
			continue
		}
		var ps []string
		for _, p := range []string{rec.PaternalID, rec.MaternalID} {
			if p != "" {
				ps = append(ps, p)
			}
		}
		parents[rec.SubjectID] = ps
		recorded[rec.SubjectID] = rec
	}

	inCycle := map[string]bool{}
	for id := range recorded {
		seen := map[string]bool{}
		stack := []string{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, p := range parents[cur] {
				if p == id {
					inCycle[id] = true
				}
				if !seen[p] {
					seen[p] = true
					stack = append(stack, p)
				}
			}
		}
	}

	var kept []pedigree.Record
	for _, rec := range records {
		if rec.Upload && inCycle[rec.SubjectID] {
			e.plan.review(Conflict{
				Kind: SubjectConflict, Key: rec.SubjectID, Field: "pid/mid",
				IncomingValue: rec.PaternalID + "/" + rec.MaternalID,
				Source:        "pedigree " + rec.File,
				Reason:        "parent links form a cycle",
			})
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func (e *Engine) applyPhenotypes(res *phenotype.Result) {
	for _, sp := range res.ForReview {
		e.plan.review(Conflict{
			Kind: PacketConflict, Key: sp.SubjectID, Field: "subjectID",
			IncomingValue: sp.SubjectID, Source: "packet " + sp.File,
			Reason: "packet subject is not in the registry",
		})
	}

	for _, sp := range res.Subjects {
		s, ok := e.workSubject(sp.SubjectID)
		if !ok {
			e.plan.review(Conflict{
				Kind: PacketConflict, Key: sp.SubjectID, Field: "subjectID",
				IncomingValue: sp.SubjectID, Source: "packet " + sp.File,
				Reason: "packet subject is not in the catalog",
			})
			continue
		}
		if s.Retracted {
			log.WithField("subjectID", s.ID).WithField("file", sp.File).
				Warn("Subject is retracted; dropping phenotype packet")
			continue
		}
		source := "packet " + sp.File
		dirty := subjectDirty(e, s.ID)

		e.mergeSex(&s.Sex, sp.Sex, SubjectConflict, s.ID, source, dirty)
		e.mergePhenotypeSets(s, sp, dirty)
		// dateOfBirth is written through the subjectinfo CSV path only,
		// so a birth-year change does not dirty the subjects row
		if sp.BirthYear != "" && sp.BirthYear != s.BirthYear {
			s.BirthYear = sp.BirthYear
			e.birthYears[s.ID] = sp.BirthYear
		}
	}
}

// mergePhenotypeSets replaces the clinical code sets wholesale when a
// newer packet arrives; packets are re-emitted in full per release.
// Under the preserve policy the sets union instead.
func (e *Engine) mergePhenotypeSets(s *catalog.Subject, sp phenotype.SubjectPhenotype, dirty func()) {
	apply := func(current *[]string, incoming []string) {
		var next []string
		if e.policy.PhenotypeReplace == PhenotypePreserve {
			next = catalog.UnionSet(*current, incoming)
		} else {
			next = catalog.SplitSet(catalog.JoinSet(incoming))
		}
		if !catalog.SameSet(*current, next) {
			*current = next
			dirty()
		}
	}
	apply(&s.Phenotypes, sp.Phenotypes)
	apply(&s.NegatedPhenotypes, sp.NegatedPhenotypes)
	apply(&s.Diseases, sp.Diseases)
	apply(&s.AgeOfOnset, sp.AgeOfOnset)
	apply(&s.UnknownPhenotypes, sp.UnknownPhenotypes)
	apply(&s.UnknownDiseases, sp.UnknownDiseases)
	apply(&s.UnknownOnset, sp.UnknownOnset)
	if sp.File != "" && s.PhenotypeFile != sp.File {
		s.PhenotypeFile = sp.File
		dirty()
	}
}

// assemble turns the dirty working copies into deterministic update
// lists and stamps every write with the run clock.
func (e *Engine) assemble() {
	for id := range e.dirtySubjects {
		s := e.workSubjects[id]
		e.updateAudit(&s.Audit)
		e.plan.UpdateSubjects = append(e.plan.UpdateSubjects, s)
	}
	sort.Slice(e.plan.UpdateSubjects, func(i, j int) bool {
		return e.plan.UpdateSubjects[i].ID < e.plan.UpdateSubjects[j].ID
	})

	for id := range e.dirtySamples {
		s := e.workSamples[id]
		e.updateAudit(&s.Audit)
		e.plan.UpdateSamples = append(e.plan.UpdateSamples, s)
	}
	sort.Slice(e.plan.UpdateSamples, func(i, j int) bool {
		return e.plan.UpdateSamples[i].ID < e.plan.UpdateSamples[j].ID
	})

	for id := range e.dirtyExperiment {
		ex := e.workExperiments[id]
		e.updateAudit(&ex.Audit)
		e.plan.UpdateExperiments = append(e.plan.UpdateExperiments, ex)
	}
	sort.Slice(e.plan.UpdateExperiments, func(i, j int) bool {
		return e.plan.UpdateExperiments[i].ID < e.plan.UpdateExperiments[j].ID
	})

	ids := make([]string, 0, len(e.birthYears))
	for id := range e.birthYears {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e.plan.SubjectInfo = append(e.plan.SubjectInfo, SubjectInfoRow{
			SubjectID:   id,
			DateOfBirth: e.birthYears[id],
			UpdatedAt:   e.stamp,
			UpdatedBy:   e.jobID,
		})
	}

	sort.Slice(e.plan.InsertSubjects, func(i, j int) bool {
		return e.plan.InsertSubjects[i].ID < e.plan.InsertSubjects[j].ID
	})
	sort.Slice(e.plan.InsertSamples, func(i, j int) bool {
		return e.plan.InsertSamples[i].ID < e.plan.InsertSamples[j].ID
	})
	sort.Slice(e.plan.InsertExperiments, func(i, j int) bool {
		return e.plan.InsertExperiments[i].ID < e.plan.InsertExperiments[j].ID
	})
	sort.Slice(e.plan.InsertFiles, func(i, j int) bool {
		return e.plan.InsertFiles[i].ID < e.plan.InsertFiles[j].ID
	})
	sort.Slice(e.plan.InsertReleases, func(i, j int) bool {
		return e.plan.InsertReleases[i].ID < e.plan.InsertReleases[j].ID
	})
}

// ---- merge primitives ----

// mergeGuarded fills a null catalog value, no-ops on equality, and
// routes disagreeing non-null values to review. Reports whether the
// value was set.
func (e *Engine) mergeGuarded(kind ConflictKind, key, source, field string, current *string, incoming string, dirty func()) bool {
	if incoming == "" || incoming == *current {
		return false
	}
	if *current == "" {
		*current = incoming
		dirty()
		return true
	}
	e.plan.review(Conflict{
		Kind: kind, Key: key, Field: field,
		CatalogValue: *current, IncomingValue: incoming,
		Source: source, Reason: "conflicting non-null values",
	})
	return false
}

func (e *Engine) mergeGuardedFloat(kind ConflictKind, key, source, field string, current *null.Float, incoming null.Float, dirty func()) {
	if !incoming.Valid || (current.Valid && current.Float64 == incoming.Float64) {
		return
	}
	if !current.Valid {
		*current = incoming
		dirty()
		return
	}
	e.plan.review(Conflict{
		Kind: kind, Key: key, Field: field,
		CatalogValue:  strconv.FormatFloat(current.Float64, 'f', -1, 64),
		IncomingValue: strconv.FormatFloat(incoming.Float64, 'f', -1, 64),
		Source:        source, Reason: "conflicting non-null values",
	})
}

// mergeSex applies the sex contract: fill null, no-op on equal,
// review on conflict — except when the catalog carries a union token,
// where the configured policy may narrow it to the incoming member.
func (e *Engine) mergeSex(current *string, incoming string, kind ConflictKind, key, source string, dirty func()) {
	if incoming == "" || incoming == *current {
		return
	}
	if *current == "" {
		*current = incoming
		dirty()
		return
	}
	members := catalog.SplitSet(*current)
	if len(members) > 1 && containsString(members, incoming) {
		if e.policy.SexUnion == SexUnionPreferSpecific {
			*current = incoming
			dirty()
			return
		}
	}
	e.plan.review(Conflict{
		Kind: kind, Key: key, Field: "sex",
		CatalogValue: *current, IncomingValue: incoming,
		Source: source, Reason: "conflicting non-null sex values",
	})
}

func (e *Engine) mergeAffection(s *catalog.Subject, incoming null.Bool, source string, dirty func()) {
	if !incoming.Valid || (s.Affection.Valid && s.Affection.Bool == incoming.Bool) {
		return
	}
	if !s.Affection.Valid {
		s.Affection = incoming
		dirty()
		return
	}
	e.plan.review(Conflict{
		Kind: SubjectConflict, Key: s.ID, Field: "clinicalStatus",
		CatalogValue:  strconv.FormatBool(s.Affection.Bool),
		IncomingValue: strconv.FormatBool(incoming.Bool),
		Source:        source, Reason: "conflicting non-null affection values",
	})
}

// mergeReleases unions release membership and marks the record dirty
// only when the set actually grows. A release added twice stays a
// single member.
func (e *Engine) mergeReleases(current *[]string, incoming []string, dirty func()) {
	mergeSet(current, incoming, dirty)
}

func mergeSet(current *[]string, incoming []string, dirty func()) {
	next := catalog.UnionSet(*current, incoming)
	if catalog.SameSet(*current, next) {
		return
	}
	*current = next
	dirty()
}

func fillIfEmpty(current *string, incoming string, dirty func()) {
	if *current == "" && incoming != "" {
		*current = incoming
		dirty()
	}
}

// ---- working copies and bookkeeping ----

func (e *Engine) workSubject(id string) (*catalog.Subject, bool) {
	if s, ok := e.workSubjects[id]; ok {
		return s, true
	}
	orig, ok := e.cat.Subjects[id]
	if !ok {
		return nil, false
	}
	clone := *orig
	e.workSubjects[id] = &clone
	return &clone, true
}

func (e *Engine) workSample(id string) (*catalog.Sample, bool) {
	if s, ok := e.workSamples[id]; ok {
		return s, true
	}
	orig, ok := e.cat.Samples[id]
	if !ok {
		return nil, false
	}
	clone := *orig
	e.workSamples[id] = &clone
	return &clone, true
}

func (e *Engine) workExperiment(id string) (*catalog.Experiment, bool) {
	if ex, ok := e.workExperiments[id]; ok {
		return ex, true
	}
	orig, ok := e.cat.Experiments[id]
	if !ok {
		return nil, false
	}
	clone := *orig
	e.workExperiments[id] = &clone
	return &clone, true
}

func subjectDirty(e *Engine, id string) func() {
	return func() { e.dirtySubjects[id] = true }
}

func sampleDirty(e *Engine, id string) func() {
	return func() { e.dirtySamples[id] = true }
}

func experimentDirty(e *Engine, id string) func() {
	return func() { e.dirtyExperiment[id] = true }
}

func (e *Engine) subjectResolvable(id string) bool {
	_, inCatalog := e.cat.Subjects[id]
	_, staged := e.stagedSubjects[id]
	return inCatalog || staged
}

func (e *Engine) sampleResolvable(id string) bool {
	_, inCatalog := e.cat.Samples[id]
	_, staged := e.stagedSamples[id]
	return inCatalog || staged
}

func (e *Engine) experimentResolvable(id string) bool {
	_, inCatalog := e.cat.Experiments[id]
	_, staged := e.stagedExperiments[id]
	return inCatalog || staged
}

// mergeStagedSubject folds a subject delivered again by a later
// manifest into the row already planned for insert.
func mergeStagedSubject(staged, in *catalog.Subject) {
	staged.Releases = catalog.UnionSet(staged.Releases, in.Releases)
	if staged.Sex == "" {
		staged.Sex = in.Sex
	}
	if staged.Organisation == "" {
		staged.Organisation = in.Organisation
	}
	if staged.ERN == "" {
		staged.ERN = in.ERN
	}
}

func mergeStagedSample(staged, in *catalog.Sample) {
	staged.Releases = catalog.UnionSet(staged.Releases, in.Releases)
	staged.Batch = catalog.UnionSet(staged.Batch, in.Batch)
	staged.AlternativeIdentifiers = catalog.UnionSet(staged.AlternativeIdentifiers, in.AlternativeIdentifiers)
}

func (e *Engine) insertAudit(a *catalog.Audit) {
	a.CreatedAt = e.stamp
	a.CreatedBy = e.jobID
	a.UpdatedAt = e.stamp
	a.UpdatedBy = e.jobID
}

func (e *Engine) updateAudit(a *catalog.Audit) {
	a.UpdatedAt = e.stamp
	a.UpdatedBy = e.jobID
}

func containsRelease(releases []catalog.Release, id string) bool {
	for _, r := range releases {
		if r.ID == id {
			return true
		}
	}
	return false
}

func containsString(members []string, v string) bool {
	for _, m := range members {
		if m == v {
			return true
		}
	}
	return false
}
