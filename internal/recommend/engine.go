// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cinerec/internal/cache"
	"github.com/tomtom215/cinerec/internal/events"
	"github.com/tomtom215/cinerec/internal/logging"
	"github.com/tomtom215/cinerec/internal/metrics"
	"github.com/tomtom215/cinerec/internal/recommend/catalog"
	"github.com/tomtom215/cinerec/internal/recommend/knn"
	"github.com/tomtom215/cinerec/internal/recommend/profile"
	"github.com/tomtom215/cinerec/internal/recommend/ratings"
	"github.com/tomtom215/cinerec/internal/recommend/snapshot"
	"github.com/tomtom215/cinerec/internal/recommend/storage"
)

// SnapshotStore persists snapshots. storage.Store implements it.
type SnapshotStore interface {
	Save(ctx context.Context, snap *snapshot.Snapshot) (*storage.Manifest, error)
	Load(ctx context.Context, version int64) (*snapshot.Snapshot, *storage.Manifest, error)
}

// RetrainPublisher publishes retrain requests. events.Bus implements it.
type RetrainPublisher interface {
	PublishRetrain(ctx context.Context, e events.RetrainRequested) error
}

// TitleLookup maps item ids to display titles. catalog.Catalog implements
// it.
type TitleLookup interface {
	Title(itemID int) string
}

// Deps are the engine's collaborators. Store and Builder are required.
type Deps struct {
	Store     *ratings.Store
	Builder   *profile.Builder
	Snapshots SnapshotStore
	Titles    TitleLookup
	Publisher RetrainPublisher
}

type cacheKey struct {
	version int64
	viewSeq uint64
	userID  int
	topN    int
}

// Engine serves recommendations and coordinates feedback and retraining.
// It is safe for concurrent use.
type Engine struct {
	cfg    *Config
	logger zerolog.Logger

	store     *ratings.Store
	builder   *profile.Builder
	snapshots SnapshotStore
	titles    TitleLookup
	publisher RetrainPublisher

	current snapshot.Holder
	cache   *cache.Cache[cacheKey, *Response]

	// trainMu serializes training runs. version is guarded by it.
	trainMu  sync.Mutex
	version  int64
	training atomic.Bool

	// retrainDue is set when feedback is merged and cleared by the next
	// successful training, which always includes the merged rows.
	retrainDue atomic.Bool

	statusMu     sync.RWMutex
	lastTraining *TrainingStatus
	lastErr      string

	now func() time.Time
}

// OpenStore opens the rating store. Missing or corrupt data files are
// reported as ErrConfiguration, wrapping the underlying cause.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenStore(cfg ratings.Config, logger zerolog.Logger) (*ratings.Store, error) {
	store, err := ratings.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return store, nil
}

// NewEngine creates an engine with no snapshot installed. Call LoadLatest
// or Retrain before serving.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, deps Deps, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if deps.Store == nil || deps.Builder == nil {
		return nil, fmt.Errorf("%w: rating store and profile builder are required", ErrConfiguration)
	}
	if cfg.AsyncRetrain && deps.Publisher == nil {
		return nil, fmt.Errorf("%w: async retrain requires a retrain publisher", ErrConfiguration)
	}
	if deps.Titles == nil {
		deps.Titles = catalog.Empty()
	}

	e := &Engine{
		cfg:       cfg,
		logger:    logger.With().Str("component", "recommend").Logger(),
		store:     deps.Store,
		builder:   deps.Builder,
		snapshots: deps.Snapshots,
		titles:    deps.Titles,
		publisher: deps.Publisher,
		now:       time.Now,
	}
	if cfg.CacheTTL > 0 {
		e.cache = cache.New[cacheKey, *Response](cfg.CacheTTL)
	}
	return e, nil
}

// Close releases background resources.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// LoadLatest installs the latest persisted snapshot. It returns
// ErrNoSnapshot when nothing complete is stored, and wraps any other
// failure in ErrConfiguration.
func (e *Engine) LoadLatest(ctx context.Context) error {
	if e.snapshots == nil {
		return ErrNoSnapshot
	}

	start := e.now()
	snap, manifest, err := e.snapshots.Load(ctx, 0)
	metrics.RecordSnapshotStore("load", e.now().Sub(start))
	if errors.Is(err, storage.ErrNoSnapshot) {
		return ErrNoSnapshot
	}
	if err != nil {
		return fmt.Errorf("%w: load snapshot: %w", ErrConfiguration, err)
	}

	e.trainMu.Lock()
	if snap.Version() > e.version {
		e.version = snap.Version()
	}
	e.install(snap)
	e.trainMu.Unlock()

	// The snapshot may know users whose rows were since removed from the
	// data files; never hand their ids out again.
	e.store.ReserveUserIDs(snap.MaxUserID())

	e.logger.Info().
		Int64("version", snap.Version()).
		Time("trained_at", manifest.TrainedAt).
		Int("users", snap.NumUsers()).
		Int("items", snap.NumItems()).
		Msg("model snapshot loaded")
	return nil
}

// install swaps in snap. Must hold trainMu.
func (e *Engine) install(snap *snapshot.Snapshot) {
	e.current.Install(snap)
	if e.cache != nil {
		e.cache.Clear()
	}
	metrics.SetModel(snap.Version(), snap.NumUsers(), snap.NumItems())
}

// Snapshot returns the serving snapshot, or nil.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	return e.current.Load()
}

// Ready reports whether a snapshot is installed.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Recommend ranks items for req.UserID. An unknown user without metadata
// gets an empty response, not an error.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := e.now()

	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNoModel
	}
	topN, err := e.topN(req.TopN)
	if err != nil {
		return nil, err
	}
	view := e.store.View()

	key := cacheKey{version: snap.Version(), viewSeq: view.Seq(), userID: req.UserID, topN: topN}
	if e.cache != nil {
		if resp, ok := e.cache.Get(key); ok {
			metrics.RecordRecommendCache(true)
			return resp, nil
		}
		metrics.RecordRecommendCache(false)
	}

	resp := &Response{UserID: req.UserID, ModelVersion: snap.Version(), Items: []ScoredItem{}}
	path := metrics.PathKnown

	var neighbors []knn.Neighbor
	if row, ok := snap.UserRow(req.UserID); ok {
		neighbors = withoutRow(snap.Index().Neighbors(row), row)
	} else {
		meta, ok := view.User(req.UserID)
		if !ok {
			metrics.RecordRecommendation(metrics.PathUnknownUser, 0, e.now().Sub(start))
			logging.Ctx(ctx).Debug().Int("user_id", req.UserID).Msg("unknown user without metadata")
			return resp, nil
		}
		path = metrics.PathColdStart
		resp.ColdStart = true
		q := snap.ColdStartProfile(demographicsOf(meta))
		neighbors, err = snap.Index().Query(q)
		if err != nil {
			return nil, fmt.Errorf("cold start neighbor query: %w", err)
		}
	}

	for _, p := range rank(snap, view, req.UserID, neighbors, topN) {
		resp.Items = append(resp.Items, ScoredItem{
			ItemID: p.itemID,
			Title:  e.titles.Title(p.itemID),
			Score:  p.score,
		})
	}

	if e.cache != nil {
		e.cache.Set(key, resp)
	}
	metrics.RecordRecommendation(path, len(resp.Items), e.now().Sub(start))
	logging.Ctx(ctx).Debug().
		Int("user_id", req.UserID).
		Bool("cold_start", resp.ColdStart).
		Int("neighbors", len(neighbors)).
		Int("returned", len(resp.Items)).
		Msg("recommendations ranked")
	return resp, nil
}

func (e *Engine) topN(n int) (int, error) {
	switch {
	case n < 0:
		return 0, fmt.Errorf("%w: top_n must be non-negative, got %d", ErrValidation, n)
	case n == 0:
		return e.cfg.DefaultTopN, nil
	case n > e.cfg.MaxTopN:
		return e.cfg.MaxTopN, nil
	}
	return n, nil
}

// Status reports the serving model and feedback state.
func (e *Engine) Status() Status {
	view := e.store.View()
	st := Status{
		Ratings:    view.Len(),
		Pending:    e.store.Pending(),
		Threshold:  e.cfg.RetrainThreshold,
		Training:   e.training.Load(),
		RetrainDue: e.retrainDue.Load(),
	}
	if snap := e.current.Load(); snap != nil {
		st.Ready = true
		st.ModelVersion = snap.Version()
		trainedAt := snap.TrainedAt()
		st.TrainedAt = &trainedAt
		st.Users = snap.NumUsers()
		st.Items = snap.NumItems()
		st.LatentDim = snap.LatentDim()
		st.ProfileDim = snap.Dim()
		st.GlobalMean = snap.GlobalMean()
	}

	e.statusMu.RLock()
	if e.lastTraining != nil {
		last := *e.lastTraining
		st.LastTraining = &last
	}
	st.LastError = e.lastErr
	e.statusMu.RUnlock()

	if e.cache != nil {
		cs := e.cache.Stats()
		st.Cache = &CacheStatus{
			Hits:      cs.Hits,
			Misses:    cs.Misses,
			Evictions: cs.Evictions,
			Keys:      cs.TotalKeys,
			HitRate:   e.cache.HitRate(),
		}
	}
	return st
}

// Users returns all user metadata records.
func (e *Engine) Users() []ratings.UserMeta {
	return e.store.View().Users()
}

// UserRatings returns the merged ratings of one user.
func (e *Engine) UserRatings(userID int) []ratings.Rating {
	return e.store.View().UserRatings(userID)
}
