// Package backend assembles the liposome IVR dataset: it joins experiment
// and formulation features from the store, adds API descriptors, derives the
// summary tables and exports everything as CSV artifacts.
package backend

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/domain/dataset"
	"github.com/turtacn/liposome-ivr/internal/domain/molecule"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database/repositories"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/storage/minio"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// Artifact names.
const (
	ArtifactCombined      = "backend_data"
	ArtifactDescriptors   = "mol_descriptors"
	ArtifactTimeUnits     = "time_units"
	ArtifactAPIPercent    = "API_percent"
	ArtifactMethodPercent = "method_percent"
	ArtifactHeatmap       = "heatmap_counts"
	ArtifactMissing       = "missing_data"
	ArtifactReleasePoints = "release_points"
	ArtifactManifest      = "manifest"
)

// Repository is the read side of the IVR store used by the pipeline.
type Repository interface {
	APIFrame(ctx context.Context) (*dataset.Table, error)
	APINames(ctx context.Context) (*dataset.Table, error)
	CombinedFeatures(ctx context.Context, ivrFeatures, cqaFeatures []string) (*dataset.Table, error)
	TimeUnits(ctx context.Context) (*dataset.Table, error)
	CQACardinality(ctx context.Context) ([]repositories.CardinalityViolation, error)
}

// Recorder receives pipeline measurements.
type Recorder interface {
	ObserveStage(stage string, elapsed time.Duration)
	SetRowsWritten(artifact string, rows int)
	MarkCompleted(at time.Time)
}

// Uploader copies artifacts to object storage.
type Uploader interface {
	ObjectKey(runID, rel string) string
	UploadFile(ctx context.Context, localPath, objectKey string, metadata map[string]string) (*minio.UploadResult, error)
}

// DescriptorCache remembers descriptor vectors that computed without any
// failure.  Lookups and stores are best effort: errors are logged and the
// vector is recomputed.
type DescriptorCache interface {
	Get(ctx context.Context, smiles string, names []string) (map[string]float64, bool, error)
	Put(ctx context.Context, smiles string, names []string, values map[string]float64) error
}

// EventPublisher announces finished builds to downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key, eventType string, payload interface{}) error
}

// EventDatasetBuilt is the event type published after a successful build.
const EventDatasetBuilt = "ivr.dataset.built"

// BuildEvent is the payload of EventDatasetBuilt.
type BuildEvent struct {
	RunID              string     `json:"run_id"`
	FinishedAt         time.Time  `json:"finished_at"`
	Rows               int        `json:"rows"`
	DescriptorFailures int        `json:"descriptor_failures"`
	Manifest           string     `json:"manifest"`
	Artifacts          []Artifact `json:"artifacts"`
}

// Service runs the dataset build.
type Service interface {
	// Assemble computes every table without writing anything.
	Assemble(ctx context.Context) (*Dataset, error)
	// Build assembles, exports, uploads and writes the run manifest.
	Build(ctx context.Context) (*BuildResult, error)
}

// Dataset holds every table derived from the store.
type Dataset struct {
	Descriptors        *dataset.Table
	APIInfo            *dataset.Table
	Combined           *dataset.Table
	TimeUnits          *dataset.Table
	APIPercent         *dataset.Distribution
	MethodPercent      *dataset.Distribution
	Pairs              *dataset.PairCounts
	Heatmap            *dataset.Matrix // nil unless pivoting
	Missing            *dataset.MissingReport
	ReleasePoints      []ReleasePoint
	Cardinality        []repositories.CardinalityViolation
	DescriptorFailures int
}

// HeatmapTable returns the pivoted matrix when present, else the long form.
func (d *Dataset) HeatmapTable() *dataset.Table {
	if d.Heatmap != nil {
		return d.Heatmap.Table()
	}
	return d.Pairs.Table()
}

// BuildResult is the outcome of a successful Build.
type BuildResult struct {
	Dataset      *Dataset
	Manifest     *Manifest
	ManifestPath string
}

// Option customises the service.
type Option func(*serviceImpl)

func WithRecorder(r Recorder) Option { return func(s *serviceImpl) { s.recorder = r } }

func WithUploader(u Uploader) Option { return func(s *serviceImpl) { s.uploader = u } }

func WithDescriptorCache(c DescriptorCache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

// WithEventPublisher publishes a BuildEvent after the manifest is written.
// Publish failures are logged and do not fail the build.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *serviceImpl) { s.events = p }
}

func WithRunIDGenerator(fn func() string) Option { return func(s *serviceImpl) { s.newRunID = fn } }

func WithClock(fn func() time.Time) Option { return func(s *serviceImpl) { s.now = fn } }

type serviceImpl struct {
	repo      Repository
	extractor *DescriptorExtractor
	cfg       *config.Config
	logger    logging.Logger
	recorder  Recorder
	uploader  Uploader
	cache     DescriptorCache
	events    EventPublisher
	newRunID  func() string
	now       func() time.Time
}

// NewService wires the pipeline.  The caller owns the store connection
// behind repo and must release it after Build returns.
func NewService(repo Repository, extractor *DescriptorExtractor, cfg *config.Config, logger logging.Logger, opts ...Option) Service {
	s := &serviceImpl{
		repo:      repo,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger.Named("backend"),
		recorder:  nopRecorder{},
		newRunID:  uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *serviceImpl) Assemble(ctx context.Context) (*Dataset, error) {
	return s.assemble(ctx, s.logger)
}

func (s *serviceImpl) Build(ctx context.Context) (*BuildResult, error) {
	runID := s.newRunID()
	started := s.now()
	log := s.logger.With(logging.String("run_id", runID))
	log.Info("Starting dataset build", logging.String("output_dir", s.cfg.Output.Dir))

	ds, err := s.assemble(ctx, log)
	if err != nil {
		log.Error("Dataset build failed", logging.Err(err))
		return nil, err
	}

	var artifacts []Artifact
	err = s.stage(log, "export", func() error {
		var e error
		artifacts, e = s.export(ds)
		return e
	})
	if err != nil {
		log.Error("Dataset export failed", logging.Err(err))
		return nil, err
	}

	manifest := &Manifest{
		RunID:              runID,
		StartedAt:          started,
		Driver:             s.cfg.Database.Driver,
		IVRFeatures:        s.cfg.Pipeline.IVRFeatures,
		CQAFeatures:        s.cfg.Pipeline.CQAFeatures,
		Descriptors:        s.extractor.Names(),
		Rows:               ds.Combined.Len(),
		DescriptorFailures: ds.DescriptorFailures,
		Artifacts:          artifacts,
	}
	for _, v := range ds.Cardinality {
		manifest.CardinalityWarnings = append(manifest.CardinalityWarnings,
			CardinalityWarning{FormulationID: v.FormulationID, Rows: v.Rows})
	}

	if s.uploader != nil {
		if err := s.stage(log, "upload", func() error { return s.upload(ctx, runID, manifest.Artifacts) }); err != nil {
			log.Error("Artifact upload failed", logging.Err(err))
			return nil, err
		}
	}

	manifestPath := s.cfg.Output.Resolve(s.cfg.Output.Manifest)
	manifest.FinishedAt = s.now()
	if err := manifest.WriteFile(manifestPath); err != nil {
		return nil, err
	}
	if s.uploader != nil {
		key := s.uploader.ObjectKey(runID, relativeName(s.cfg.Output.Manifest))
		if _, err := s.uploader.UploadFile(ctx, manifestPath, key, map[string]string{"run-id": runID}); err != nil {
			return nil, err
		}
	}

	if s.events != nil {
		ev := BuildEvent{
			RunID:              runID,
			FinishedAt:         manifest.FinishedAt,
			Rows:               manifest.Rows,
			DescriptorFailures: manifest.DescriptorFailures,
			Manifest:           manifestPath,
			Artifacts:          manifest.Artifacts,
		}
		if err := s.events.PublishEvent(ctx, runID, EventDatasetBuilt, ev); err != nil {
			log.Warn("Failed to publish build event", logging.Err(err))
		}
	}

	s.recorder.MarkCompleted(manifest.FinishedAt)
	log.Info("Dataset build completed",
		logging.Int("rows", manifest.Rows),
		logging.Int("artifacts", len(manifest.Artifacts)),
		logging.Int("descriptor_failures", manifest.DescriptorFailures),
		logging.Duration("elapsed", manifest.FinishedAt.Sub(started)),
	)
	return &BuildResult{Dataset: ds, Manifest: manifest, ManifestPath: manifestPath}, nil
}

func (s *serviceImpl) assemble(ctx context.Context, log logging.Logger) (*Dataset, error) {
	ds := &Dataset{}
	pc := s.cfg.Pipeline

	err := s.stage(log, "api_info", func() error { return s.buildAPIInfo(ctx, log, ds) })
	if err != nil {
		return nil, err
	}
	log.Info("Prepared API table", logging.Int("rows", ds.APIInfo.Len()))

	err = s.stage(log, "features", func() error {
		if pc.CheckCardinality {
			violations, err := s.repo.CQACardinality(ctx)
			if err != nil {
				return err
			}
			for _, v := range violations {
				log.Warn("Formulation has several quality-attribute rows; joined experiments are duplicated",
					logging.Int64("formulation_id", v.FormulationID), logging.Int("rows", v.Rows))
			}
			ds.Cardinality = violations
		}

		features, err := s.repo.CombinedFeatures(ctx, pc.IVRFeatures, pc.CQAFeatures)
		if err != nil {
			return err
		}
		if !features.HasColumn("ID") {
			return errors.InvalidParam("ivr_features must include IVR.ID to key the combined table")
		}
		if features, err = features.Rename(map[string]string{"ID": "IVR_ID"}); err != nil {
			return err
		}
		ds.Combined, err = features.InnerJoin(ds.APIInfo, "IVR_ID")
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(log, "time_units", func() error {
		var e error
		ds.TimeUnits, e = s.repo.TimeUnits(ctx)
		return e
	})
	if err != nil {
		return nil, err
	}

	if err := s.stage(log, "summaries", func() error { return s.summarize(log, ds) }); err != nil {
		return nil, err
	}

	if dir := pc.ReleaseProfilesDir; dir != "" {
		err = s.stage(log, "release_points", func() error {
			var e error
			ds.ReleasePoints, e = CountReleasePoints(dir)
			return e
		})
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// buildAPIInfo joins each experiment to its API name, structure and
// descriptors, keyed by IVR_ID.
func (s *serviceImpl) buildAPIInfo(ctx context.Context, log logging.Logger, ds *Dataset) error {
	frame, err := s.repo.APIFrame(ctx)
	if err != nil {
		return err
	}
	if frame, err = frame.Rename(map[string]string{"ID": "IVR_ID"}); err != nil {
		return err
	}

	names, err := s.repo.APINames(ctx)
	if err != nil {
		return err
	}
	ds.Descriptors, ds.DescriptorFailures, err = s.descriptorTable(ctx, log, names)
	if err != nil {
		return err
	}
	if ds.DescriptorFailures > 0 {
		log.Warn("Some descriptors fell back to the sentinel", logging.Int("failures", ds.DescriptorFailures))
	}

	if names, err = names.Rename(map[string]string{"ID": "API_ID"}); err != nil {
		return err
	}
	info, err := frame.InnerJoin(names, "API_ID")
	if err != nil {
		return err
	}
	if info, err = info.Drop("formulation_ID"); err != nil {
		return err
	}
	if info, err = info.InnerJoin(ds.Descriptors, "API_ID"); err != nil {
		return err
	}
	if info, err = info.Drop("API_name_y"); err != nil {
		return err
	}
	ds.APIInfo, err = info.Rename(map[string]string{"API_name_x": "API_name"})
	return err
}

// descriptorTable builds [API_ID, API_name, <descriptors>] from the API
// table, one row per API, and returns the number of failed descriptors.
func (s *serviceImpl) descriptorTable(ctx context.Context, log logging.Logger, names *dataset.Table) (*dataset.Table, int, error) {
	cols := append([]string{"API_ID", "API_name"}, s.extractor.Names()...)
	t, err := dataset.NewTable(cols...)
	if err != nil {
		return nil, 0, err
	}

	failures, hits := 0, 0
	for i := 0; i < names.Len(); i++ {
		id, err := names.Value(i, "ID")
		if err != nil {
			return nil, 0, err
		}
		name, _ := names.Value(i, "API_name")
		smiles, err := names.Value(i, "SMILES")
		if err != nil {
			return nil, 0, err
		}

		vec, cached := s.descriptorVector(ctx, log, dataset.FormatValue(smiles))
		if cached {
			hits++
		}
		failures += len(vec.Failures())

		row := append([]interface{}{id, name}, vec.Values()...)
		if err := t.AppendRow(row...); err != nil {
			return nil, 0, err
		}
	}
	if s.cache != nil {
		log.Debug("Descriptor cache lookups", logging.Int("hits", hits), logging.Int("structures", names.Len()))
	}
	return t, failures, nil
}

// descriptorVector consults the cache before computing.  Only vectors without
// failures are stored.
func (s *serviceImpl) descriptorVector(ctx context.Context, log logging.Logger, smiles string) (molecule.Vector, bool) {
	if s.cache == nil {
		vec, _ := s.extractor.ExtractSMILES(smiles)
		return vec, false
	}

	names := s.extractor.Names()
	values, ok, err := s.cache.Get(ctx, smiles, names)
	if err != nil {
		log.Warn("Descriptor cache lookup failed", logging.String("smiles", smiles), logging.Err(err))
	}
	if ok {
		return s.extractor.FromValues(values), true
	}

	vec, _ := s.extractor.ExtractSMILES(smiles)
	if len(vec.Failures()) > 0 {
		return vec, false
	}
	computed := make(map[string]float64, vec.Len())
	for _, n := range names {
		o, _ := vec.Outcome(n)
		computed[n] = o.Value
	}
	if err := s.cache.Put(ctx, smiles, names, computed); err != nil {
		log.Warn("Descriptor cache store failed", logging.String("smiles", smiles), logging.Err(err))
	}
	return vec, false
}

func (s *serviceImpl) summarize(log logging.Logger, ds *Dataset) error {
	hc := s.cfg.Heatmap
	if ds.Combined.Len() == 0 {
		return errors.New(errors.ErrCodeEmptyTable, "no experiments matched a formulation and an API")
	}

	var err error
	if ds.APIPercent, err = dataset.ValueDistribution(ds.Combined, hc.DrugColumn); err != nil {
		return err
	}
	if ds.MethodPercent, err = dataset.ValueDistribution(ds.Combined, hc.MethodColumn); err != nil {
		return err
	}
	if ds.Pairs, err = dataset.HeatmapCounts(ds.Combined, hc.DrugColumn, hc.MethodColumn); err != nil {
		return err
	}
	if hc.Pivot {
		ds.Heatmap = ds.Pairs.Pivot()
		if hc.Totals {
			ds.Heatmap = ds.Heatmap.WithTotals()
		}
	}

	var cols []string
	for _, c := range s.cfg.Pipeline.MissingColumns {
		if ds.Combined.HasColumn(c) {
			cols = append(cols, c)
		} else {
			log.Warn("Missing-value column not in combined table", logging.String("column", c))
		}
	}
	if len(cols) > 0 {
		if ds.Missing, err = dataset.MissingSummary(ds.Combined, cols, dataset.DefaultMissingLabels); err != nil {
			return err
		}
	}
	return nil
}

type exportItem struct {
	name      string
	rel       string
	table     *dataset.Table
	withIndex bool
}

func (s *serviceImpl) export(ds *Dataset) ([]Artifact, error) {
	oc := s.cfg.Output
	items := []exportItem{
		{ArtifactDescriptors, oc.Descriptors, ds.Descriptors, false},
		{ArtifactTimeUnits, oc.TimeUnits, ds.TimeUnits, false},
		{ArtifactCombined, oc.Combined, ds.Combined, true},
		{ArtifactAPIPercent, oc.APIPercent, ds.APIPercent.Table(), false},
		{ArtifactMethodPercent, oc.MethodPercent, ds.MethodPercent.Table(), false},
		{ArtifactHeatmap, oc.Heatmap, ds.HeatmapTable(), false},
	}
	if ds.Missing != nil {
		items = append(items, exportItem{ArtifactMissing, oc.Missing, ds.Missing.Table(), false})
	}
	if ds.ReleasePoints != nil {
		items = append(items, exportItem{ArtifactReleasePoints, oc.ReleasePoints, ReleasePointTable(ds.ReleasePoints), false})
	}

	artifacts := make([]Artifact, 0, len(items))
	for _, it := range items {
		path := oc.Resolve(it.rel)
		if err := WriteCSV(path, it.table.Records(it.withIndex)); err != nil {
			return nil, err
		}
		s.recorder.SetRowsWritten(it.name, it.table.Len())
		s.logger.Debug("Wrote artifact", logging.String("name", it.name), logging.String("path", path),
			logging.Int("rows", it.table.Len()))
		artifacts = append(artifacts, Artifact{Name: it.name, Path: it.rel, Rows: it.table.Len()})
	}
	return artifacts, nil
}

// maxConcurrentUploads bounds parallel object-storage writes.
const maxConcurrentUploads = 4

// upload copies every artifact concurrently and records its location.  The
// first failure cancels the uploads still in flight.
func (s *serviceImpl) upload(ctx context.Context, runID string, artifacts []Artifact) error {
	meta := map[string]string{"run-id": runID}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)
	for i := range artifacts {
		a := &artifacts[i]
		g.Go(func() error {
			key := s.uploader.ObjectKey(runID, relativeName(a.Path))
			res, err := s.uploader.UploadFile(gctx, s.cfg.Output.Resolve(a.Path), key, meta)
			if err != nil {
				return err
			}
			a.Location = res.Location
			return nil
		})
	}
	return g.Wait()
}

// relativeName keeps output-relative paths and reduces absolute ones to
// their base name.
func relativeName(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Base(p)
	}
	return p
}

func (s *serviceImpl) stage(log logging.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	s.recorder.ObserveStage(name, elapsed)
	log.Debug("Stage finished", logging.String("stage", name), logging.Duration("elapsed", elapsed), logging.Bool("ok", err == nil))
	return err
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, time.Duration) {}
func (nopRecorder) SetRowsWritten(string, int)         {}
func (nopRecorder) MarkCompleted(time.Time)            {}
