package workflow

import (
	"strings"
	"testing"

	"github.com/yungbote/contentforge-backend/internal/types"
)

func TestLoadPolicies_EmbeddedDefaultsAreValid(t *testing.T) {
	ps, err := LoadPolicies(nil)
	if err != nil {
		t.Fatalf("load embedded policies: %v", err)
	}
	if len(ps.Default.Stages) != 1 || ps.Default.Mode != ModeParallel {
		t.Fatalf("unexpected default policy: %+v", ps.Default)
	}
	if ps.For(types.TemplateKindAnalysis).Mode != ModeSequential {
		t.Fatalf("analysis kind should review sequentially")
	}
}

func TestLoadPolicies_RejectsUnknownDefaultMode(t *testing.T) {
	raw := []byte(`
default:
  mode: paralell
  stages:
    - name: editorial
      reviewer: editor
      due_in_hours: 48
`)
	_, err := LoadPolicies(raw)
	if err == nil || !strings.Contains(err.Error(), "default stage policy") {
		t.Fatalf("typo'd default mode accepted: %v", err)
	}
}

func TestLoadPolicies_RejectsUnknownKindMode(t *testing.T) {
	raw := []byte(`
default:
  mode: parallel
  stages:
    - name: editorial
      reviewer: editor
      due_in_hours: 48
kinds:
  notification-template:
    mode: both
    stages:
      - name: editorial
        reviewer: editor
        due_in_hours: 12
`)
	_, err := LoadPolicies(raw)
	if err == nil || !strings.Contains(err.Error(), "notification-template") {
		t.Fatalf("unknown kind mode accepted: %v", err)
	}
}

func TestPolicySet_ForFallsBackToDefault(t *testing.T) {
	ps, err := LoadPolicies(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := ps.For("never-configured-kind")
	if got.Mode != ps.Default.Mode || len(got.Stages) != len(ps.Default.Stages) {
		t.Fatalf("unknown kind did not fall back to default: %+v", got)
	}
}
