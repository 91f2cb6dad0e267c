package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/finlens-org/finlens/dataset"
	"github.com/finlens-org/finlens/executor"
	"github.com/finlens-org/finlens/forecast"
	"github.com/finlens-org/finlens/history"
	"github.com/finlens-org/finlens/planner"
	"github.com/finlens-org/finlens/profiler"
)

// ============================================================================
// ANALYST — Question-to-answer orchestration
// ============================================================================
// The Analyst owns the loaded dataset snapshot and runs the full pipeline:
// classify intent, build a plan, execute it, log the query. Answers for a
// given (dataset version, normalized question) pair are cached — the whole
// pipeline is deterministic, so a cache hit is exact, and concurrent
// identical questions collapse into one execution.
// ============================================================================

// ErrNoDataset means no dataset has been loaded yet.
var ErrNoDataset = errors.New("service: no dataset loaded")

// Answer bundles the plan that was built with the result of running it.
type Answer struct {
	Plan   planner.Plan     `json:"plan"`
	Result *executor.Result `json:"result"`
}

// snapshot is an immutable loaded dataset. Swapping in a new one changes
// the version, which invalidates every cached answer.
type snapshot struct {
	table   *dataset.Table
	roles   dataset.RoleMap
	version uuid.UUID
}

// Analyst answers natural-language questions about the loaded dataset.
type Analyst struct {
	mu         sync.RWMutex
	snap       *snapshot
	cache      map[string]*Answer
	cacheLimit int

	flight singleflight.Group
	fc     executor.Forecaster
	hist   *history.Store
	log    *slog.Logger
}

// AnalystOption configures a new Analyst.
type AnalystOption func(*Analyst)

// WithHistory wires a query-history store; answered questions are logged.
func WithHistory(s *history.Store) AnalystOption {
	return func(a *Analyst) { a.hist = s }
}

// WithForecaster wires the forecasting engine used by prediction queries.
func WithForecaster(f executor.Forecaster) AnalystOption {
	return func(a *Analyst) { a.fc = f }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) AnalystOption {
	return func(a *Analyst) { a.log = l }
}

// WithCacheLimit caps the answer cache at n entries; the cache is flushed
// when it fills. n < 1 keeps the default.
func WithCacheLimit(n int) AnalystOption {
	return func(a *Analyst) {
		if n >= 1 {
			a.cacheLimit = n
		}
	}
}

// NewAnalyst creates an Analyst with no dataset loaded.
func NewAnalyst(opts ...AnalystOption) *Analyst {
	a := &Analyst{
		cache:      make(map[string]*Answer),
		cacheLimit: 1024,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load swaps in a dataset, detecting column roles, and returns the new
// snapshot version. The previous dataset and all cached answers are dropped.
func (a *Analyst) Load(t *dataset.Table) uuid.UUID {
	roles := profiler.DetectRoles(t)
	return a.LoadWithRoles(t, roles)
}

// LoadWithRoles swaps in a dataset with caller-supplied roles.
func (a *Analyst) LoadWithRoles(t *dataset.Table, roles dataset.RoleMap) uuid.UUID {
	version := uuid.New()
	a.mu.Lock()
	a.snap = &snapshot{table: t, roles: roles, version: version}
	a.cache = make(map[string]*Answer)
	a.mu.Unlock()

	a.log.Info("dataset loaded",
		"version", version,
		"rows", t.NumRows(),
		"columns", t.NumCols(),
		"roles", len(roles))
	return version
}

// Version returns the current snapshot version, or uuid.Nil when empty.
func (a *Analyst) Version() uuid.UUID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.snap == nil {
		return uuid.Nil
	}
	return a.snap.version
}

// Roles returns the detected role map of the loaded dataset.
func (a *Analyst) Roles() (dataset.RoleMap, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.snap == nil {
		return nil, ErrNoDataset
	}
	return a.snap.roles, nil
}

// Plan builds the execution plan for a question without running it.
func (a *Analyst) Plan(question string) (planner.Plan, error) {
	a.mu.RLock()
	snap := a.snap
	a.mu.RUnlock()
	if snap == nil {
		return planner.Plan{}, ErrNoDataset
	}
	return planner.BuildPlan(question, snap.roles, snap.table.Columns()), nil
}

// Ask answers a question: plan, execute, log. Identical questions against
// the same dataset version share one execution and one cached answer.
func (a *Analyst) Ask(ctx context.Context, question string) (*Answer, error) {
	a.mu.RLock()
	snap := a.snap
	a.mu.RUnlock()
	if snap == nil {
		return nil, ErrNoDataset
	}

	key := snap.version.String() + "|" + normalize(question)

	a.mu.RLock()
	cached, ok := a.cache[key]
	a.mu.RUnlock()
	if ok {
		a.log.Debug("answer cache hit", "question", question)
		return cached, nil
	}

	v, err, _ := a.flight.Do(key, func() (interface{}, error) {
		ans := a.answer(snap, question)
		a.mu.Lock()
		if len(a.cache) >= a.cacheLimit {
			a.cache = make(map[string]*Answer)
		}
		// A Load between lookup and here changed the version; the stale
		// key can never be read again, so caching it is harmless.
		a.cache[key] = ans
		a.mu.Unlock()

		if a.hist != nil {
			if herr := a.hist.Record(ctx, history.Entry{
				Question:    question,
				Intent:      string(ans.Plan.Intent),
				RowsScanned: ans.Result.RowsScanned,
				ExecTimeMS:  ans.Result.ExecTimeMS,
			}); herr != nil {
				a.log.Warn("record query history", "error", herr)
			}
		}
		return ans, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Answer), nil
}

// answer runs the deterministic pipeline against one snapshot.
func (a *Analyst) answer(snap *snapshot, question string) *Answer {
	plan := planner.BuildPlan(question, snap.roles, snap.table.Columns())

	var opts []executor.Option
	if a.fc != nil {
		opts = append(opts, executor.WithForecaster(a.fc))
	}
	result := executor.Execute(plan, snap.table, snap.roles, opts...)

	a.log.Info("query answered",
		"intent", plan.Intent,
		"rows_scanned", result.RowsScanned,
		"exec_time_ms", result.ExecTimeMS)
	return &Answer{Plan: plan, Result: result}
}

// Forecast runs the monthly value forecast directly, outside the NL path.
func (a *Analyst) Forecast(months int) (*forecast.Model, error) {
	a.mu.RLock()
	snap := a.snap
	a.mu.RUnlock()
	if snap == nil {
		return nil, ErrNoDataset
	}
	if months < 1 {
		months = 3
	}
	return forecast.Monthly(snap.table, snap.roles, months)
}

// History returns the most recent logged queries.
func (a *Analyst) History(ctx context.Context, n int) ([]history.Entry, error) {
	if a.hist == nil {
		return nil, nil
	}
	return a.hist.Recent(ctx, n)
}

// Overview summarizes the loaded dataset for the landing view.
type Overview struct {
	Version    uuid.UUID         `json:"version"`
	Rows       int               `json:"rows"`
	Columns    []string          `json:"columns"`
	Roles      map[string]string `json:"roles"`
	TotalValue float64           `json:"total_value"`
	DateRange  [2]string         `json:"date_range"`
}

// Overview reports basic stats about the loaded dataset.
func (a *Analyst) Overview() (*Overview, error) {
	a.mu.RLock()
	snap := a.snap
	a.mu.RUnlock()
	if snap == nil {
		return nil, ErrNoDataset
	}

	o := &Overview{
		Version: snap.version,
		Rows:    snap.table.NumRows(),
		Columns: snap.table.Columns(),
		Roles:   map[string]string(snap.roles),
	}
	if amountCol := snap.roles.Col(dataset.RoleAmount); amountCol != "" {
		for _, v := range snap.table.Column(amountCol) {
			if !v.IsNull() {
				o.TotalValue += v.Float()
			}
		}
	}
	if dateCol := snap.roles.Col(dataset.RoleDate); dateCol != "" {
		var lo, hi string
		for _, v := range snap.table.Column(dateCol) {
			if v.IsNull() {
				continue
			}
			s := v.Time.Format("2006-01-02")
			if lo == "" || s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
		o.DateRange = [2]string{lo, hi}
	}
	return o, nil
}

// normalize is the cache key normalization: lowercase, collapsed whitespace.
func normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Describe renders a one-line summary for logs and the CLI.
func (o *Overview) Describe() string {
	return fmt.Sprintf("%d rows, %d columns, %d roles detected",
		o.Rows, len(o.Columns), len(o.Roles))
}
