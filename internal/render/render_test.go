package render

import (
	"reflect"
	"testing"
)

func TestRender_SubstitutesAndReportsMissing(t *testing.T) {
	res := Render("Hi {name}, your {thing} is ready", map[string]string{"name": "Ana"})
	if res.Text != "Hi Ana, your {thing} is ready" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if !reflect.DeepEqual(res.Used, []string{"name"}) {
		t.Fatalf("unexpected used: %v", res.Used)
	}
	if !reflect.DeepEqual(res.Missing, []string{"thing"}) {
		t.Fatalf("unexpected missing: %v", res.Missing)
	}
}

func TestRender_SinglePassDoesNotRescanValues(t *testing.T) {
	res := Render("{a}", map[string]string{"a": "{b}", "b": "boom"})
	if res.Text != "{b}" {
		t.Fatalf("substituted value was re-scanned: %q", res.Text)
	}
}

func TestRender_IdempotentOnResolvedText(t *testing.T) {
	vars := map[string]string{"name": "Ana", "thing": "report"}
	first := Render("Hi {name}, your {thing} is ready", vars)
	second := Render(first.Text, vars)
	if second.Text != first.Text {
		t.Fatalf("re-render changed text: %q -> %q", first.Text, second.Text)
	}
	if len(second.Missing) != 0 {
		t.Fatalf("re-render reported missing: %v", second.Missing)
	}
}

func TestRender_NonIdentifierBracesAreLiteral(t *testing.T) {
	res := Render(`{"json": 1} and {2bad} and {ok}`, map[string]string{"ok": "yes"})
	if res.Text != `{"json": 1} and {2bad} and yes` {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if len(res.Missing) != 0 {
		t.Fatalf("literal braces reported missing: %v", res.Missing)
	}
}

func TestRender_RepeatedPlaceholderReportedOnce(t *testing.T) {
	res := Render("{x} {x} {y} {y}", map[string]string{"x": "1"})
	if res.Text != "1 1 {y} {y}" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if !reflect.DeepEqual(res.Used, []string{"x"}) || !reflect.DeepEqual(res.Missing, []string{"y"}) {
		t.Fatalf("unexpected used/missing: %v / %v", res.Used, res.Missing)
	}
}

func TestPlaceholders_OrderOfFirstAppearance(t *testing.T) {
	got := Placeholders("{b} {a} {b}")
	if !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("unexpected placeholders: %v", got)
	}
}

func TestUnused(t *testing.T) {
	got := Unused([]string{"a", "b", "c"}, []string{"b"})
	if !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("unexpected unused: %v", got)
	}
}
