// Package analytics is the read-only view over execution logs and item
// states. It never mutates anything; health is recomputed lazily on read.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/types"
)

// Probe is a lightweight component availability check wired in by the app
// (db ping, redis ping, ...).
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type KindStats struct {
	Runs        int     `json:"runs"`
	SuccessRate float64 `json:"success_rate"`
	AvgQuality  float64 `json:"avg_quality"`
}

type Report struct {
	WindowDays      int                  `json:"window_days"`
	TotalRuns       int                  `json:"total_runs"`
	CountsByOutcome map[string]int       `json:"counts_by_outcome"`
	AvgQuality      float64              `json:"avg_quality"`
	AvgWordCount    float64              `json:"avg_word_count"`
	ByTemplateKind  map[string]KindStats `json:"by_template_kind"`
	ItemsByStatus   map[string]int       `json:"items_by_status"`
}

type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

type HealthReport struct {
	Score      float64           `json:"score"` // [0,1]
	Components []ComponentHealth `json:"components"`
	Hints      []string          `json:"hints,omitempty"`
}

type Service struct {
	execLogs repos.ExecutionLogRepo
	items    repos.GeneratedItemRepo
	genLogs  repos.GenerationCallLogRepo
	probes   []Probe
	log      *logger.Logger
}

func NewService(
	execLogs repos.ExecutionLogRepo,
	items repos.GeneratedItemRepo,
	genLogs repos.GenerationCallLogRepo,
	baseLog *logger.Logger,
	probes ...Probe,
) *Service {
	return &Service{
		execLogs: execLogs,
		items:    items,
		genLogs:  genLogs,
		probes:   probes,
		log:      baseLog.With("service", "Analytics"),
	}
}

// Window aggregates execution-log entries and item states over the trailing
// windowDays days.
func (s *Service) Window(ctx context.Context, windowDays int) (*Report, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	since := time.Now().AddDate(0, 0, -windowDays)

	entries, err := s.execLogs.ListSince(ctx, nil, since)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListSince(ctx, nil, since)
	if err != nil {
		return nil, err
	}

	report := &Report{
		WindowDays:      windowDays,
		TotalRuns:       len(entries),
		CountsByOutcome: map[string]int{},
		ByTemplateKind:  map[string]KindStats{},
		ItemsByStatus:   map[string]int{},
	}

	var qualitySum float64
	var qualityN int
	kindRuns := map[string]int{}
	kindSuccess := map[string]int{}
	kindQuality := map[string]float64{}
	for _, e := range entries {
		report.CountsByOutcome[e.Outcome]++
		if e.Outcome == types.OutcomeSuccess {
			qualitySum += e.QualityScore
			qualityN++
			kindSuccess[e.TemplateKind]++
			kindQuality[e.TemplateKind] += e.QualityScore
		}
		kindRuns[e.TemplateKind]++
	}
	if qualityN > 0 {
		report.AvgQuality = qualitySum / float64(qualityN)
	}
	for kind, runs := range kindRuns {
		st := KindStats{Runs: runs}
		if runs > 0 {
			st.SuccessRate = float64(kindSuccess[kind]) / float64(runs)
		}
		if n := kindSuccess[kind]; n > 0 {
			st.AvgQuality = kindQuality[kind] / float64(n)
		}
		report.ByTemplateKind[kind] = st
	}

	var wordSum int
	for _, it := range items {
		report.ItemsByStatus[it.Status]++
		wordSum += it.WordCount
	}
	if len(items) > 0 {
		report.AvgWordCount = float64(wordSum) / float64(len(items))
	}
	return report, nil
}

// Health scores the pipeline 0-1 from recent success rate and component
// probes, with ranked remediation hints when degraded.
func (s *Service) Health(ctx context.Context) (*HealthReport, error) {
	since := time.Now().AddDate(0, 0, -1)
	entries, err := s.execLogs.ListSince(ctx, nil, since)
	if err != nil {
		return nil, err
	}

	report := &HealthReport{}

	successRate := 1.0
	if len(entries) > 0 {
		n := 0
		for _, e := range entries {
			if e.Outcome == types.OutcomeSuccess {
				n++
			}
		}
		successRate = float64(n) / float64(len(entries))
	}

	healthyComponents := 0
	totalComponents := 0
	addComponent := func(name string, healthy bool, detail string) {
		report.Components = append(report.Components, ComponentHealth{Name: name, Healthy: healthy, Detail: detail})
		totalComponents++
		if healthy {
			healthyComponents++
		} else {
			report.Hints = append(report.Hints, fmt.Sprintf("component %s unavailable: %s", name, detail))
		}
	}

	for _, p := range s.probes {
		if err := p.Check(ctx); err != nil {
			addComponent(p.Name, false, err.Error())
		} else {
			addComponent(p.Name, true, "")
		}
	}
	genHealthy, genDetail := s.generationHealthy(ctx, since)
	addComponent("generation", genHealthy, genDetail)

	// Repeated failures at one stage or one data source are the most
	// actionable signals.
	for stage, n := range failingStages(entries) {
		if n >= 3 {
			report.Hints = append(report.Hints, fmt.Sprintf("stage %s failing repeatedly (%d recent failures)", stage, n))
		}
	}
	for source, n := range failingSources(entries) {
		if n >= 3 {
			report.Hints = append(report.Hints, fmt.Sprintf("data source %s failing repeatedly (%d recent failures)", source, n))
		}
	}
	sort.Strings(report.Hints)

	availability := 1.0
	if totalComponents > 0 {
		availability = float64(healthyComponents) / float64(totalComponents)
	}
	report.Score = round3(0.7*successRate + 0.3*availability)
	return report, nil
}

func (s *Service) generationHealthy(ctx context.Context, since time.Time) (bool, string) {
	calls, err := s.genLogs.ListSince(ctx, nil, since)
	if err != nil {
		return false, err.Error()
	}
	if len(calls) == 0 {
		return true, "no recent calls"
	}
	ok := 0
	for _, c := range calls {
		if c.Success {
			ok++
		}
	}
	rate := float64(ok) / float64(len(calls))
	if rate < 0.5 {
		return false, fmt.Sprintf("success rate %.0f%% over %d calls", rate*100, len(calls))
	}
	return true, ""
}

func failingStages(entries []*types.ExecutionLogEntry) map[string]int {
	out := map[string]int{}
	for _, e := range entries {
		if e.Outcome == types.OutcomeFailure && e.ErrorStage != "" {
			out[e.ErrorStage]++
		}
	}
	return out
}

// failingSources counts per-source partial failures across runs of any
// outcome: a source can be degraded while every run still succeeds.
func failingSources(entries []*types.ExecutionLogEntry) map[string]int {
	out := map[string]int{}
	for _, e := range entries {
		if len(e.FailedSourceTypes) == 0 {
			continue
		}
		var failed []string
		if err := json.Unmarshal(e.FailedSourceTypes, &failed); err != nil {
			continue
		}
		for _, s := range failed {
			out[s]++
		}
	}
	return out
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
