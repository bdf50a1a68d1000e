// Package sources gathers evidence from heterogeneous data sources
// concurrently. One source failing never fails a gather; failures come back
// alongside whatever succeeded.
package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
)

type Query struct {
	Type   string            `json:"type"`
	Filter map[string]string `json:"filter"`
	Limit  int               `json:"limit"`
}

type Evidence struct {
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt"`
	Relevance  float64   `json:"relevance"` // [0,1]
	FetchedAt  time.Time `json:"fetched_at"`
}

// Failure is a recorded partial failure, not an error: the gather call
// succeeded with less evidence.
type Failure struct {
	SourceType string `json:"source_type"`
	Reason     string `json:"reason"`
}

// Strategy fetches and relevance-scores evidence for one source type.
type Strategy interface {
	Type() string
	Fetch(ctx context.Context, q Query) ([]Evidence, error)
}

type Aggregator struct {
	log          *logger.Logger
	strategies   map[string]Strategy
	queryTimeout time.Duration
}

func NewAggregator(baseLog *logger.Logger, queryTimeout time.Duration, strategies ...Strategy) *Aggregator {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	m := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		m[s.Type()] = s
	}
	return &Aggregator{
		log:          baseLog.With("service", "DataSourceAggregator"),
		strategies:   m,
		queryTimeout: queryTimeout,
	}
}

// Gather runs all queries concurrently, bounded by parallelism. Evidence is
// returned sorted by relevance descending; failures carry the reason per
// failed query.
func (a *Aggregator) Gather(ctx context.Context, queries []Query, parallelism int) ([]Evidence, []Failure) {
	if len(queries) == 0 {
		return nil, nil
	}
	if parallelism <= 0 {
		parallelism = 4
	}

	var (
		mu       sync.Mutex
		evidence []Evidence
		failures []Failure
	)
	sem := semaphore.NewWeighted(int64(parallelism))
	g, gctx := errgroup.WithContext(ctx)

	for _, q := range queries {
		q := q
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				mu.Lock()
				failures = append(failures, Failure{SourceType: q.Type, Reason: err.Error()})
				mu.Unlock()
				return nil
			}
			defer sem.Release(1)

			items, err := a.fetchOne(gctx, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Warn("source query failed", "source_type", q.Type, "error", err.Error())
				failures = append(failures, Failure{SourceType: q.Type, Reason: err.Error()})
				return nil
			}
			evidence = append(evidence, items...)
			return nil
		})
	}
	// Workers only record failures; the group never sees an error.
	_ = g.Wait()

	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].Relevance > evidence[j].Relevance
	})
	return evidence, failures
}

func (a *Aggregator) fetchOne(ctx context.Context, q Query) ([]Evidence, error) {
	strat, ok := a.strategies[q.Type]
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", q.Type)
	}
	qctx, cancel := context.WithTimeout(ctx, a.queryTimeout)
	defer cancel()
	return strat.Fetch(qctx, q)
}

// Relevance combines recency with filter-match strength. A fresh, fully
// matching item approaches 1; anything older than maxAge contributes only its
// match component.
func Relevance(age time.Duration, matched, total int, maxAge time.Duration) float64 {
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	recency := 1 - float64(age)/float64(maxAge)
	if recency < 0 {
		recency = 0
	}
	if recency > 1 {
		recency = 1
	}
	match := 1.0
	if total > 0 {
		match = float64(matched) / float64(total)
	}
	return 0.5*recency + 0.5*match
}
