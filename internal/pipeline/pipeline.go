// Package pipeline coordinates one generation run: resolve the template,
// gather evidence, render, optionally refine through the external generation
// service, score, and route the result into publication or review. Exactly
// one execution-log entry is written per run attempt, whatever happens.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/contentforge-backend/internal/generation"
	"github.com/yungbote/contentforge-backend/internal/notify"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/render"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/score"
	"github.com/yungbote/contentforge-backend/internal/sources"
	"github.com/yungbote/contentforge-backend/internal/template"
	"github.com/yungbote/contentforge-backend/internal/types"
	"github.com/yungbote/contentforge-backend/internal/workflow"
)

const (
	StageResolve  = "resolve"
	StageGather   = "gather"
	StageRender   = "render"
	StageGenerate = "generate"
	StageScore    = "score"
	StageRoute    = "route"

	// Hard ceiling on generation retries regardless of configuration.
	maxGenerationRetries = 2

	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
	jitterFrac = 0.2
)

type Options struct {
	ApprovalRequired  bool    `json:"approval_required"`
	MinQualityScore   float64 `json:"min_quality_score"`
	MaxRetries        int     `json:"max_retries"`
	SourceParallelism int     `json:"source_parallelism"`
}

type Request struct {
	TemplateID       string            `json:"template_id"`
	Variables        map[string]string `json:"variables"`
	SourceQueries    []sources.Query   `json:"source_queries"`
	Audience         string            `json:"audience"`
	Format           string            `json:"format"`
	ApprovalRequired *bool             `json:"approval_required,omitempty"` // overrides Options when set
	Priority         int               `json:"priority"`
}

type Result struct {
	RunID          uuid.UUID            `json:"run_id"`
	Outcome        string               `json:"outcome"` // success|failure|cancelled
	Item           *types.GeneratedItem `json:"item,omitempty"`
	Rendered       *render.Result       `json:"rendered,omitempty"`
	Unused         []string             `json:"unused_variables,omitempty"`
	Scores         *score.Scores        `json:"scores,omitempty"`
	Evidence       []sources.Evidence   `json:"evidence,omitempty"`
	SourceFailures []sources.Failure    `json:"source_failures,omitempty"`
	Warnings       []string             `json:"warnings,omitempty"`
	FailedStage    string               `json:"failed_stage,omitempty"`
	FailureReason  string               `json:"failure_reason,omitempty"`
}

type Orchestrator struct {
	registry   template.Registry
	aggregator *sources.Aggregator
	gen        generation.Client // nil disables the refinement stage
	engine     *workflow.Engine
	items      repos.GeneratedItemRepo
	bindings   repos.DataSourceBindingRepo
	execLogs   repos.ExecutionLogRepo
	genLogs    repos.GenerationCallLogRepo
	notifier   notify.ReviewNotifier
	opts       Options
	log        *logger.Logger

	sleep func(ctx context.Context, d time.Duration) error // test seam
}

func NewOrchestrator(
	registry template.Registry,
	aggregator *sources.Aggregator,
	gen generation.Client,
	engine *workflow.Engine,
	items repos.GeneratedItemRepo,
	bindings repos.DataSourceBindingRepo,
	execLogs repos.ExecutionLogRepo,
	genLogs repos.GenerationCallLogRepo,
	notifier notify.ReviewNotifier,
	opts Options,
	baseLog *logger.Logger,
) *Orchestrator {
	if opts.SourceParallelism <= 0 {
		opts.SourceParallelism = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxRetries > maxGenerationRetries {
		opts.MaxRetries = maxGenerationRetries
	}
	return &Orchestrator{
		registry:   registry,
		aggregator: aggregator,
		gen:        gen,
		engine:     engine,
		items:      items,
		bindings:   bindings,
		execLogs:   execLogs,
		genLogs:    genLogs,
		notifier:   notifier,
		opts:       opts,
		log:        baseLog.With("service", "GenerationOrchestrator"),
		sleep:      sleepCtx,
	}
}

// Run executes one pipeline attempt. The returned Result is always populated;
// err is non-nil only for aborting failures (lookup, exhausted generation
// retries, storage).
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.New(), Outcome: types.OutcomeFailure}
	runLog := o.log.With("run_id", result.RunID.String(), "template_id", req.TemplateID)
	runLog.Info("pipeline run started", "priority", req.Priority, "queries", len(req.SourceQueries))

	var tmpl *types.Template
	defer func() {
		o.writeLog(result, tmpl, req, time.Since(start))
	}()

	// resolve
	if cancelled(ctx, result, StageResolve) {
		return result, ctx.Err()
	}
	tmpl, err := o.registry.Get(ctx, req.TemplateID)
	if err != nil {
		return fail(result, StageResolve, err)
	}
	if !tmpl.Enabled {
		err := fmt.Errorf("%w: %s", template.ErrDisabled, tmpl.ID)
		return fail(result, StageResolve, err)
	}
	declared, err := template.DeclaredVariables(tmpl)
	if err != nil {
		return fail(result, StageResolve, err)
	}
	// The counter tracks runs that used the template, not runs that
	// succeeded.
	if err := o.registry.IncrementUsage(ctx, tmpl.ID); err != nil {
		runLog.Warn("usage counter bump failed", "error", err.Error())
	}

	// gather
	if cancelled(ctx, result, StageGather) {
		return result, ctx.Err()
	}
	if len(req.SourceQueries) > 0 {
		result.Evidence, result.SourceFailures = o.aggregator.Gather(ctx, req.SourceQueries, o.opts.SourceParallelism)
		for _, f := range result.SourceFailures {
			result.Warnings = append(result.Warnings, fmt.Sprintf("source %s failed: %s", f.SourceType, f.Reason))
		}
	}
	if tmpl.Kind == types.TemplateKindAnalysis && len(result.Evidence) == 0 {
		// An analysis prompt with nothing to analyze is not worth
		// generating.
		return fail(result, StageGather, fmt.Errorf("no usable evidence for analysis template %s", tmpl.ID))
	}

	// render
	if cancelled(ctx, result, StageRender) {
		return result, ctx.Err()
	}
	vars := mergedVariables(req.Variables, result.Evidence)
	rendered := render.Render(tmpl.Body, vars)
	result.Rendered = &rendered
	result.Unused = render.Unused(declared, rendered.Used)
	if len(rendered.Missing) > 0 {
		if tmpl.Kind == types.TemplateKindNotification {
			// A notification with visible holes must not ship.
			return fail(result, StageRender, fmt.Errorf("missing variables for notification template: %s", strings.Join(rendered.Missing, ", ")))
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf("missing variables: %s", strings.Join(rendered.Missing, ", ")))
	}

	// generate (optional refinement)
	finalText := rendered.Text
	if o.gen != nil {
		if cancelled(ctx, result, StageGenerate) {
			return result, ctx.Err()
		}
		refined, err := o.generateWithRetry(ctx, runLog, result.RunID, tmpl, rendered.Text)
		if err != nil {
			return fail(result, StageGenerate, err)
		}
		finalText = refined
	}

	// score
	if cancelled(ctx, result, StageScore) {
		return result, ctx.Err()
	}
	scores := score.Score(finalText, declared, rendered.Used)
	result.Scores = &scores

	// route
	if cancelled(ctx, result, StageRoute) {
		return result, ctx.Err()
	}
	item, err := o.route(ctx, req, tmpl, finalText, scores, result)
	if err != nil {
		return fail(result, StageRoute, err)
	}
	result.Item = item
	result.Outcome = types.OutcomeSuccess

	runLog.Info("pipeline run finished",
		"item_id", item.ID.String(),
		"status", item.Status,
		"quality", scores.Quality,
		"warnings", len(result.Warnings))
	return result, nil
}

func (o *Orchestrator) generateWithRetry(ctx context.Context, runLog *logger.Logger, runID uuid.UUID, tmpl *types.Template, prompt string) (string, error) {
	params := generation.Params{
		Engine:         tmpl.Engine,
		Temperature:    tmpl.Temperature,
		MaxOutputChars: tmpl.MaxOutputChars,
	}
	attempts := o.opts.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptStart := time.Now()
		text, err := o.gen.Generate(ctx, prompt, params)
		entry := &types.GenerationCallLog{
			RunID:     runID,
			Engine:    tmpl.Engine,
			Attempt:   attempt,
			Prompt:    prompt,
			Success:   err == nil,
			ElapsedMS: time.Since(attemptStart).Milliseconds(),
		}
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Response = text
		}
		if _, lerr := o.genLogs.Create(ctx, nil, entry); lerr != nil {
			runLog.Warn("generation call log write failed", "error", lerr.Error())
		}
		if err == nil {
			return text, nil
		}
		lastErr = err
		runLog.Warn("generation attempt failed", "attempt", attempt, "error", err.Error())
		if attempt < attempts {
			if serr := o.sleep(ctx, backoff(attempt)); serr != nil {
				return "", fmt.Errorf("%w: %v", generation.ErrUnavailable, serr)
			}
		}
	}
	if !errors.Is(lastErr, generation.ErrUnavailable) {
		lastErr = fmt.Errorf("%w: %v", generation.ErrUnavailable, lastErr)
	}
	return "", lastErr
}

func (o *Orchestrator) route(ctx context.Context, req Request, tmpl *types.Template, text string, scores score.Scores, result *Result) (*types.GeneratedItem, error) {
	approval := o.opts.ApprovalRequired
	if req.ApprovalRequired != nil {
		approval = *req.ApprovalRequired
	}
	lowQuality := scores.Quality < o.opts.MinQualityScore

	now := time.Now().UTC()
	item := &types.GeneratedItem{
		TemplateID:       tmpl.ID,
		TemplateVersion:  tmpl.Version,
		Body:             text,
		QualityScore:     scores.Quality,
		ReadabilityScore: scores.Readability,
		WordCount:        scores.WordCount,
		CharCount:        scores.CharCount,
		ReadingTimeSec:   scores.ReadingTimeSec,
		Status:           types.ItemStatusScored,
		LowQuality:       lowQuality,
		Audience:         req.Audience,
		Format:           req.Format,
		StatusChangedAt:  now,
	}
	if !approval && !lowQuality {
		item.Status = types.ItemStatusPublished
		item.PublishedAt = &now
	}
	if lowQuality {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("quality %.3f below minimum %.3f", scores.Quality, o.opts.MinQualityScore))
	}

	item, err := o.items.Create(ctx, nil, item)
	if err != nil {
		return nil, err
	}

	bindings := make([]*types.DataSourceBinding, 0, len(result.Evidence))
	for _, ev := range result.Evidence {
		bindings = append(bindings, &types.DataSourceBinding{
			ItemID:     item.ID,
			SourceType: ev.SourceType,
			SourceID:   ev.SourceID,
			Relevance:  ev.Relevance,
			Excerpt:    ev.Excerpt,
		})
	}
	if _, err := o.bindings.Create(ctx, nil, bindings); err != nil {
		return nil, err
	}

	switch {
	case approval:
		submitted, err := o.engine.Submit(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		item = submitted
	case item.Status == types.ItemStatusPublished:
		o.notifier.Published(ctx, item)
	}
	return item, nil
}

func (o *Orchestrator) writeLog(result *Result, tmpl *types.Template, req Request, elapsed time.Duration) {
	entry := &types.ExecutionLogEntry{
		RunID:       result.RunID,
		TemplateID:  req.TemplateID,
		Outcome:     result.Outcome,
		ElapsedMS:   elapsed.Milliseconds(),
		ErrorStage:  result.FailedStage,
		ErrorDetail: result.FailureReason,
	}
	if tmpl != nil {
		entry.TemplateKind = tmpl.Kind
	}
	if result.Item != nil {
		id := result.Item.ID
		entry.ItemID = &id
	}
	if result.Scores != nil {
		entry.QualityScore = result.Scores.Quality
	}
	if used := usedSourceTypes(result.Evidence); len(used) > 0 {
		raw, _ := json.Marshal(used)
		entry.SourceTypes = datatypes.JSON(raw)
	}
	if failed := failedSourceTypes(result.SourceFailures); len(failed) > 0 {
		raw, _ := json.Marshal(failed)
		entry.FailedSourceTypes = datatypes.JSON(raw)
	}
	// The log write must survive run cancellation.
	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := o.execLogs.Create(logCtx, nil, entry); err != nil {
		o.log.Error("execution log write failed", "run_id", result.RunID.String(), "error", err.Error())
	}
}

func fail(result *Result, stage string, err error) (*Result, error) {
	result.Outcome = types.OutcomeFailure
	result.FailedStage = stage
	result.FailureReason = err.Error()
	return result, err
}

func cancelled(ctx context.Context, result *Result, stage string) bool {
	if err := ctx.Err(); err != nil {
		result.Outcome = types.OutcomeCancelled
		result.FailedStage = stage
		result.FailureReason = err.Error()
		return true
	}
	return false
}

// mergedVariables layers an evidence digest under the caller's variables.
// Callers win on conflict.
func mergedVariables(vars map[string]string, evidence []sources.Evidence) map[string]string {
	out := make(map[string]string, len(vars)+1)
	if len(evidence) > 0 {
		var b strings.Builder
		for i, ev := range evidence {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "- [%s] %s: %s", ev.SourceType, ev.Title, ev.Excerpt)
		}
		out["evidence"] = b.String()
	}
	for k, v := range vars {
		out[k] = v
	}
	return out
}

func failedSourceTypes(failures []sources.Failure) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		if !seen[f.SourceType] {
			seen[f.SourceType] = true
			out = append(out, f.SourceType)
		}
	}
	return out
}

func usedSourceTypes(evidence []sources.Evidence) []string {
	seen := map[string]bool{}
	out := make([]string, 0, 2)
	for _, ev := range evidence {
		if !seen[ev.SourceType] {
			seen[ev.SourceType] = true
			out = append(out, ev.SourceType)
		}
	}
	return out
}

func backoff(attempt int) time.Duration {
	d := minBackoff << (attempt - 1)
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := 1 + jitterFrac*(2*rand.Float64()-1)
	return time.Duration(float64(d) * jitter)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
