package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"talentdesk/internal/budget"
	"talentdesk/internal/cache"
	"talentdesk/internal/core"
	"talentdesk/internal/ledger"
	applog "talentdesk/internal/log"
	"talentdesk/internal/report"
)

var tracer = otel.Tracer("talentdesk/services")

// ErrInvalidPeriod is returned for a month or year key that does not parse.
var ErrInvalidPeriod = errors.New("invalid period")

// Recorder receives report timings and cache results. *metrics.Metrics
// satisfies it.
type Recorder interface {
	ObserveReport(report string, elapsed time.Duration)
	CacheLookup(report string, hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveReport(string, time.Duration) {}
func (nopRecorder) CacheLookup(string, bool)            {}

// ReportServiceConfig tunes caching. Zero values use the defaults below.
type ReportServiceConfig struct {
	CacheSize int
	CacheTTL  time.Duration
	Recorder  Recorder
	Now       func() time.Time
}

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 5 * time.Minute
)

// snapshot is one loaded ledger. Every report computed from it is cached
// under its version, so a new snapshot never serves an old result.
type snapshot struct {
	version  string
	ledger   core.Ledger
	loadedAt time.Time
}

// ReportService serves reports from a cached ledger snapshot. The snapshot is
// reloaded after Invalidate or once the cache TTL has passed.
type ReportService struct {
	source  ledger.Source
	engine  *report.Engine
	tracker *budget.Tracker
	cache   *cache.LRUCache[any]
	ttl     time.Duration
	rec     Recorder
	now     func() time.Time

	mu   sync.Mutex
	snap *snapshot
}

func NewReportService(source ledger.Source, engine *report.Engine, cfg ReportServiceConfig) *ReportService {
	if engine == nil {
		engine = report.NewEngine(report.DefaultOptions())
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ReportService{
		source:  source,
		engine:  engine,
		tracker: budget.NewTracker(engine),
		cache:   cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL).WithClock(cfg.Now),
		ttl:     cfg.CacheTTL,
		rec:     cfg.Recorder,
		now:     cfg.Now,
	}
}

// Cache exposes the result cache so a cache.Manager can sweep it.
func (s *ReportService) Cache() cache.Cleaner {
	return s.cache
}

// Invalidate drops the snapshot and every cached report.
func (s *ReportService) Invalidate(ctx context.Context) {
	s.mu.Lock()
	old := ""
	if s.snap != nil {
		old = s.snap.version
	}
	s.snap = nil
	s.mu.Unlock()

	dropped := s.cache.Purge()
	applog.FromContext(ctx).DebugContext(ctx, "Report cache invalidated",
		applog.FieldComponent, applog.ComponentCache,
		applog.FieldOperation, applog.OpInvalidate,
		applog.FieldSnapshot, old,
		"dropped", dropped)
}

// Version returns the current snapshot version, loading one if needed.
func (s *ReportService) Version(ctx context.Context) (string, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return "", err
	}
	return snap.version, nil
}

func (s *ReportService) snapshot(ctx context.Context) (*snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.snap != nil && now.Sub(s.snap.loadedAt) < s.ttl {
		return s.snap, nil
	}

	l, err := s.source.LoadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	s.snap = &snapshot{
		version:  ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		ledger:   l,
		loadedAt: now,
	}
	return s.snap, nil
}

type pinnedSnapshotKey struct{}

// withSnapshot pins snap on ctx so every report run under ctx reads it, even
// if the service reloads in the meantime.
func withSnapshot(ctx context.Context, snap *snapshot) context.Context {
	return context.WithValue(ctx, pinnedSnapshotKey{}, snap)
}

// snapshotFor returns the snapshot pinned on ctx, or the current one.
func (s *ReportService) snapshotFor(ctx context.Context) (*snapshot, error) {
	if snap, ok := ctx.Value(pinnedSnapshotKey{}).(*snapshot); ok {
		return snap, nil
	}
	return s.snapshot(ctx)
}

// cached runs compute against the current snapshot unless the result for
// kind/key is already cached under that snapshot's version.
func cached[T any](ctx context.Context, s *ReportService, kind, key string, compute func(core.Ledger) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "report."+kind, trace.WithAttributes(
		attribute.String("report.kind", kind),
		attribute.String("report.key", key),
	))
	defer span.End()

	var zero T
	snap, err := s.snapshotFor(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	span.SetAttributes(attribute.String("ledger.snapshot", snap.version))

	cacheKey := snap.version + "|" + kind + "|" + key
	if v, ok := s.cache.Get(cacheKey); ok {
		if out, ok := v.(T); ok {
			s.rec.CacheLookup(kind, true)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			applog.NewStructuredLogger(applog.FromContext(ctx)).
				LogReportComputed(ctx, kind, key, snap.version, true, 0)
			return out, nil
		}
	}
	s.rec.CacheLookup(kind, false)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	start := time.Now()
	out, err := compute(snap.ledger)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	s.rec.ObserveReport(kind, elapsed)
	s.cache.Set(cacheKey, out)

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogReportComputed(ctx, kind, key, snap.version, false, elapsed.Milliseconds())
	return out, nil
}

func (s *ReportService) Monthly(ctx context.Context) ([]report.MonthlyReport, error) {
	return cached(ctx, s, "monthly", "all", func(l core.Ledger) ([]report.MonthlyReport, error) {
		return s.engine.Monthly(l), nil
	})
}

// MonthlyFor accepts a "YYYY-MM" key. A month with no records is an empty
// report, not an error.
func (s *ReportService) MonthlyFor(ctx context.Context, month string) (report.MonthlyReport, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return report.MonthlyReport{}, fmt.Errorf("%w: month %q", ErrInvalidPeriod, month)
	}
	return cached(ctx, s, "monthly", month, func(l core.Ledger) (report.MonthlyReport, error) {
		return s.engine.MonthlyFor(l, month), nil
	})
}

func (s *ReportService) Annual(ctx context.Context) ([]report.AnnualReport, error) {
	return cached(ctx, s, "annual", "all", func(l core.Ledger) ([]report.AnnualReport, error) {
		return s.engine.Annual(l), nil
	})
}

// AnnualFor accepts a "YYYY" key.
func (s *ReportService) AnnualFor(ctx context.Context, year string) (report.AnnualReport, error) {
	if _, err := time.Parse("2006", year); err != nil {
		return report.AnnualReport{}, fmt.Errorf("%w: year %q", ErrInvalidPeriod, year)
	}
	return cached(ctx, s, "annual", year, func(l core.Ledger) (report.AnnualReport, error) {
		return s.engine.AnnualFor(l, year), nil
	})
}

func (s *ReportService) AllTime(ctx context.Context, perTalent bool) (report.AllTimeReport, error) {
	key := "pooled"
	if perTalent {
		key = "per-talent"
	}
	return cached(ctx, s, "all-time", key, func(l core.Ledger) (report.AllTimeReport, error) {
		return s.engine.AllTime(l, report.AllTimeOptions{PerTalent: perTalent}), nil
	})
}

// TalentBudget resolves the contract period containing now.
func (s *ReportService) TalentBudget(ctx context.Context, talentID int64, now time.Time) (budget.TalentBudget, error) {
	key := fmt.Sprintf("%d@%s", talentID, core.DateOf(now))
	return cached(ctx, s, "talent-budget", key, func(l core.Ledger) (budget.TalentBudget, error) {
		return s.tracker.ForTalent(l, talentID, now)
	})
}

func (s *ReportService) ManagerBudget(ctx context.Context, managerID int64, now time.Time) (budget.ManagerBudget, error) {
	key := fmt.Sprintf("%d@%s", managerID, core.DateOf(now))
	return cached(ctx, s, "manager-budget", key, func(l core.Ledger) (budget.ManagerBudget, error) {
		return s.tracker.ForManager(l, managerID, now), nil
	})
}

// Dashboard is the landing view: the month and year containing now, plus
// the all-time summary.
type Dashboard struct {
	Snapshot     string               `json:"snapshot"`
	GeneratedAt  time.Time            `json:"generatedAt"`
	CurrentMonth report.MonthlyReport `json:"currentMonth"`
	CurrentYear  report.AnnualReport  `json:"currentYear"`
	AllTime      report.AllTimeReport `json:"allTime"`
}

// Dashboard computes its three reports concurrently over one snapshot, the
// one named in Snapshot.
func (s *ReportService) Dashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	ctx, span := tracer.Start(ctx, "report.dashboard")
	defer span.End()

	snap, err := s.snapshotFor(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Dashboard{}, err
	}
	ctx = withSnapshot(ctx, snap)

	d := Dashboard{Snapshot: snap.version, GeneratedAt: now.UTC()}
	month := core.DateOf(now)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.CurrentMonth, err = s.MonthlyFor(gctx, month.MonthKey())
		return err
	})
	g.Go(func() (err error) {
		d.CurrentYear, err = s.AnnualFor(gctx, month.YearKey())
		return err
	})
	g.Go(func() (err error) {
		d.AllTime, err = s.AllTime(gctx, false)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Dashboard{}, err
	}
	return d, nil
}
