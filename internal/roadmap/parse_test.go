package roadmap

import (
	"strings"
	"testing"
)

func TestParse_CleanJSON(t *testing.T) {
	v, err := Parse(`{"roadmap": [], "weekly_hours": 10}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("got %T, want object", v)
	}
	if obj["weekly_hours"] != float64(10) {
		t.Errorf("weekly_hours = %v", obj["weekly_hours"])
	}
}

func TestParse_MarkdownFence(t *testing.T) {
	text := "Here is your roadmap:\n```json\n{\"advice\": \"practice daily\"}\n```\nGood luck!"
	v, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.(map[string]any)["advice"] != "practice daily" {
		t.Errorf("advice = %v", v.(map[string]any)["advice"])
	}
}

func TestParse_SurroundingProse(t *testing.T) {
	text := `Sure! {"total_duration_months": 6} Let me know if you need changes.`
	v, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.(map[string]any)["total_duration_months"] != float64(6) {
		t.Errorf("got %v", v)
	}
}

func TestParse_TrailingCommas(t *testing.T) {
	text := `{"roadmap": [{"phase": 1,},], "advice": "go",}`
	v, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	phases := v.(map[string]any)["roadmap"].([]any)
	if len(phases) != 1 {
		t.Errorf("phases = %v", phases)
	}
}

func TestParse_TruncatedOutput(t *testing.T) {
	text := `{"roadmap": [{"title": "Foundations", "focus": "networ`
	v, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	phases := v.(map[string]any)["roadmap"].([]any)
	phase := phases[0].(map[string]any)
	if phase["title"] != "Foundations" {
		t.Errorf("title = %v", phase["title"])
	}
	if !strings.HasPrefix(phase["focus"].(string), "networ") {
		t.Errorf("focus = %v", phase["focus"])
	}
}

func TestParse_BracesInsideStrings(t *testing.T) {
	text := `{"advice": "use {curly} and [square] freely"}`
	v, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.(map[string]any)["advice"] != "use {curly} and [square] freely" {
		t.Errorf("got %v", v)
	}
}

func TestParse_Unrecoverable(t *testing.T) {
	if _, err := Parse("I cannot produce a roadmap right now."); err == nil {
		t.Fatal("expected an error for non-JSON output")
	}
}

func TestParseObject_RejectsArrays(t *testing.T) {
	if _, err := ParseObject(`[1, 2, 3]`); err == nil {
		t.Fatal("expected an error for a top-level array")
	}
}
