package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/andresuchdata/invintel/internal/cache"
	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/pipeline"
)

// ErrRunHistoryDisabled is returned when no run store is configured.
var ErrRunHistoryDisabled = errors.New("refresh run history is not enabled")

// Refresher produces a snapshot for one threshold set.
type Refresher interface {
	Source() string
	Run(ctx context.Context, th domain.Thresholds) (*domain.Snapshot, error)
}

// RunStore persists refresh run records.
type RunStore interface {
	CreateRun(ctx context.Context, run *pipeline.RefreshRun) error
	UpdateRun(ctx context.Context, run *pipeline.RefreshRun) error
	GetRun(ctx context.Context, id string) (*pipeline.RefreshRun, error)
	ListRuns(ctx context.Context, limit int) ([]*pipeline.RefreshRun, error)
}

type DashboardService struct {
	refresher Refresher
	cache     cache.SnapshotCache
	runs      RunStore
	defaults  domain.Thresholds
	group     singleflight.Group
	now       func() time.Time

	// mu guards gen. gen is bumped by Refresh so runs started earlier
	// do not write their results over the forced one.
	mu  sync.Mutex
	gen uint64
}

// NewDashboardService wires the refresher to a cache. runs may be nil.
func NewDashboardService(refresher Refresher, cacheImpl cache.SnapshotCache, runs RunStore, defaults domain.Thresholds) *DashboardService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopCache()
	}
	return &DashboardService{
		refresher: refresher,
		cache:     cacheImpl,
		runs:      runs,
		defaults:  defaults,
		now:       time.Now,
	}
}

// DefaultThresholds returns the configured thresholds used when a request has no overrides.
func (s *DashboardService) DefaultThresholds() domain.Thresholds {
	return s.defaults
}

// GetSnapshot returns the cached snapshot for th, refreshing it on a miss.
// Concurrent misses for the same thresholds share one refresh.
func (s *DashboardService) GetSnapshot(ctx context.Context, th domain.Thresholds) (*domain.Snapshot, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	key := cache.SnapshotKey(th)

	if snap, ok, err := s.cache.GetSnapshot(ctx, key); err == nil && ok {
		return snap, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("dashboard: cache get snapshot failed")
	}

	return s.refresh(ctx, key, th)
}

// Refresh drops every cached snapshot and recomputes the one for th.
func (s *DashboardService) Refresh(ctx context.Context, th domain.Thresholds) (*domain.Snapshot, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	key := cache.SnapshotKey(th)

	s.mu.Lock()
	s.gen++
	err := s.cache.InvalidateAll(ctx)
	s.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("dashboard: cache invalidate failed")
	}

	// do not join a run that started before the invalidation
	s.group.Forget(key)
	return s.refresh(ctx, key, th)
}

func (s *DashboardService) refresh(ctx context.Context, key string, th domain.Thresholds) (*domain.Snapshot, error) {
	// one caller going away must not fail the others waiting on the same key
	shared := context.WithoutCancel(ctx)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		s.mu.Lock()
		gen := s.gen
		s.mu.Unlock()

		snap, err := s.runRecorded(shared, th)
		if err != nil {
			return nil, err
		}
		s.storeIfCurrent(shared, key, snap, gen)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Snapshot), nil
}

func (s *DashboardService) storeIfCurrent(ctx context.Context, key string, snap *domain.Snapshot, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		log.Debug().Str("run_id", snap.RunID).Msg("dashboard: superseded run not cached")
		return
	}
	if err := s.cache.SetSnapshot(ctx, key, snap); err != nil {
		log.Warn().Err(err).Msg("dashboard: cache set snapshot failed")
	}
}

func (s *DashboardService) runRecorded(ctx context.Context, th domain.Thresholds) (*domain.Snapshot, error) {
	run := pipeline.NewRefreshRun(s.refresher.Source(), th, s.now())
	if s.runs != nil {
		if err := s.runs.CreateRun(ctx, run); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID).Msg("dashboard: record run start failed")
		}
	}

	snap, err := s.refresher.Run(ctx, th)
	if err != nil {
		run.Fail(err, s.now())
		log.Error().Err(err).Str("run_id", run.ID).Msg("dashboard: refresh failed")
	} else {
		snap.RunID = run.ID
		run.Complete(snap, s.now())
		log.Info().
			Str("run_id", run.ID).
			Int("tables_loaded", run.TablesLoaded).
			Strs("failed_tables", run.FailedTables).
			Dur("took", run.CompletedAt.Sub(run.StartedAt)).
			Msg("dashboard: refresh completed")
	}

	if s.runs != nil {
		if uerr := s.runs.UpdateRun(ctx, run); uerr != nil {
			log.Warn().Err(uerr).Str("run_id", run.ID).Msg("dashboard: record run end failed")
		}
	}
	return snap, err
}

// ListRuns returns recent refresh runs, newest first.
func (s *DashboardService) ListRuns(ctx context.Context, limit int) ([]*pipeline.RefreshRun, error) {
	if s.runs == nil {
		return nil, ErrRunHistoryDisabled
	}
	return s.runs.ListRuns(ctx, limit)
}

// GetRun returns one refresh run, or nil when the id is unknown.
func (s *DashboardService) GetRun(ctx context.Context, id string) (*pipeline.RefreshRun, error) {
	if s.runs == nil {
		return nil, ErrRunHistoryDisabled
	}
	return s.runs.GetRun(ctx, id)
}
