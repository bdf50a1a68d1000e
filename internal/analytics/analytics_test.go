package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/types"
)

func newTestService(t *testing.T, probes ...Probe) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:an_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(&types.GeneratedItem{}, &types.ExecutionLogEntry{}, &types.GenerationCallLog{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logger.Nop()
	svc := NewService(
		repos.NewExecutionLogRepo(db, log),
		repos.NewGeneratedItemRepo(db, log),
		repos.NewGenerationCallLogRepo(db, log),
		log,
		probes...,
	)
	return svc, db
}

func seedEntry(t *testing.T, db *gorm.DB, outcome, kind, stage string, quality float64) {
	t.Helper()
	err := db.Create(&types.ExecutionLogEntry{
		ID:           uuid.New(),
		RunID:        uuid.New(),
		TemplateID:   "tmpl",
		TemplateKind: kind,
		Outcome:      outcome,
		QualityScore: quality,
		ErrorStage:   stage,
		CreatedAt:    time.Now().UTC(),
	}).Error
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}
}

func TestWindow_Aggregates(t *testing.T) {
	svc, db := newTestService(t)
	seedEntry(t, db, types.OutcomeSuccess, types.TemplateKindContent, "", 0.8)
	seedEntry(t, db, types.OutcomeSuccess, types.TemplateKindContent, "", 0.6)
	seedEntry(t, db, types.OutcomeFailure, types.TemplateKindAnalysis, "gather", 0)

	report, err := svc.Window(context.Background(), 7)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if report.TotalRuns != 3 {
		t.Fatalf("total runs = %d", report.TotalRuns)
	}
	if report.CountsByOutcome[types.OutcomeSuccess] != 2 || report.CountsByOutcome[types.OutcomeFailure] != 1 {
		t.Fatalf("counts = %+v", report.CountsByOutcome)
	}
	if report.AvgQuality < 0.69 || report.AvgQuality > 0.71 {
		t.Fatalf("avg quality = %v", report.AvgQuality)
	}
	content := report.ByTemplateKind[types.TemplateKindContent]
	if content.Runs != 2 || content.SuccessRate != 1 {
		t.Fatalf("content stats = %+v", content)
	}
}

func TestHealth_DegradedComponentLowersScoreAndHints(t *testing.T) {
	broken := Probe{Name: "redis", Check: func(ctx context.Context) error {
		return errors.New("connection refused")
	}}
	healthy := Probe{Name: "db", Check: func(ctx context.Context) error { return nil }}
	svc, db := newTestService(t, healthy, broken)
	seedEntry(t, db, types.OutcomeSuccess, types.TemplateKindContent, "", 0.8)

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if report.Score >= 1 {
		t.Fatalf("degraded pipeline scored %v", report.Score)
	}
	if len(report.Hints) == 0 {
		t.Fatalf("expected remediation hints")
	}
}

func TestHealth_RepeatedStageFailuresHinted(t *testing.T) {
	svc, db := newTestService(t)
	for i := 0; i < 4; i++ {
		seedEntry(t, db, types.OutcomeFailure, types.TemplateKindContent, "gather", 0)
	}
	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	found := false
	for _, h := range report.Hints {
		if h == "stage gather failing repeatedly (4 recent failures)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no gather hint in %v", report.Hints)
	}
	if report.Score > 0.35 {
		t.Fatalf("all-failure pipeline scored %v", report.Score)
	}
}

func TestHealth_RepeatedSourceFailuresHinted(t *testing.T) {
	svc, db := newTestService(t)
	// Partial source failures on otherwise successful runs.
	for i := 0; i < 3; i++ {
		err := db.Create(&types.ExecutionLogEntry{
			ID:                uuid.New(),
			RunID:             uuid.New(),
			TemplateID:        "tmpl",
			TemplateKind:      types.TemplateKindContent,
			Outcome:           types.OutcomeSuccess,
			QualityScore:      0.8,
			FailedSourceTypes: datatypes.JSON(`["feed"]`),
			CreatedAt:         time.Now().UTC(),
		}).Error
		if err != nil {
			t.Fatalf("seed entry: %v", err)
		}
	}
	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	found := false
	for _, h := range report.Hints {
		if h == "data source feed failing repeatedly (3 recent failures)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no per-source hint in %v", report.Hints)
	}
}

func TestHealth_CleanPipelineScoresOne(t *testing.T) {
	svc, db := newTestService(t, Probe{Name: "db", Check: func(ctx context.Context) error { return nil }})
	seedEntry(t, db, types.OutcomeSuccess, types.TemplateKindContent, "", 0.9)

	report, err := svc.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if report.Score != 1 {
		t.Fatalf("score = %v", report.Score)
	}
	if len(report.Hints) != 0 {
		t.Fatalf("unexpected hints: %v", report.Hints)
	}
}
