package roadmap

import (
	"testing"

	"github.com/kaliguru/kaliguru/internal/corpus"
)

func testCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.Load()
	if err != nil {
		t.Fatalf("corpus.Load: %v", err)
	}
	return c
}

func phaseWithResources(resources ...any) map[string]any {
	return map[string]any{
		"roadmap": []any{
			map[string]any{"phase": float64(1), "resources": resources},
		},
	}
}

func firstResource(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	phases := doc["roadmap"].([]any)
	resources := phases[0].(map[string]any)["resources"].([]any)
	if len(resources) == 0 {
		t.Fatal("no resources after sanitize")
	}
	return resources[0].(map[string]any)
}

func TestSanitize_PlaceholderURLRepairedFromCorpus(t *testing.T) {
	doc := phaseWithResources(map[string]any{"name": "Nmap", "url": "#"})

	res := firstResource(t, Sanitize(doc, testCorpus(t)))
	if res["name"] != "Nmap Network Scanner" {
		t.Errorf("name = %v, want Nmap Network Scanner", res["name"])
	}
	if res["url"] != "https://nmap.org" {
		t.Errorf("url = %v, want https://nmap.org", res["url"])
	}
}

func TestSanitize_UnknownNameGetsSearchURL(t *testing.T) {
	doc := phaseWithResources(map[string]any{"name": "Obscuretoolxyz"})

	res := firstResource(t, Sanitize(doc, testCorpus(t)))
	want := "https://www.google.com/search?q=Obscuretoolxyz+cybersecurity+resource"
	if res["url"] != want {
		t.Errorf("url = %v, want %v", res["url"], want)
	}
	if res["name"] != "Obscuretoolxyz" {
		t.Errorf("name = %v, want the original name kept", res["name"])
	}
}

func TestSanitize_ValidURLKeptVerbatim(t *testing.T) {
	doc := phaseWithResources(map[string]any{
		"name": "My Custom Lab",
		"url":  "https://example.com/lab",
		"why":  "hands-on practice",
	})

	res := firstResource(t, Sanitize(doc, testCorpus(t)))
	if res["url"] != "https://example.com/lab" {
		t.Errorf("url = %v, want the original URL kept", res["url"])
	}
	if res["name"] != "My Custom Lab" {
		t.Errorf("name = %v", res["name"])
	}
	if res["description"] != "hands-on practice" {
		t.Errorf("description = %v", res["description"])
	}
}

func TestSanitize_FieldAliases(t *testing.T) {
	doc := phaseWithResources(map[string]any{
		"title":       "IppSec",
		"url":         "#",
		"recommended": "walkthrough methodology",
	})

	res := firstResource(t, Sanitize(doc, testCorpus(t)))
	if res["name"] != "IppSec" {
		t.Errorf("name = %v, want alias title resolved", res["name"])
	}
	if res["url"] == "#" {
		t.Error("placeholder URL survived sanitize")
	}
	if res["description"] != "walkthrough methodology" {
		t.Errorf("description = %v, want alias recommended resolved", res["description"])
	}
}

func TestSanitize_PhasesKeyVariant(t *testing.T) {
	doc := map[string]any{
		"phases": []any{
			map[string]any{
				"resources":      []any{map[string]any{"name": "Nmap", "url": ""}},
				"mandatory_labs": []any{map[string]any{"name": "TryHackMe"}},
			},
		},
	}

	out := Sanitize(doc, testCorpus(t))
	phase := out["phases"].([]any)[0].(map[string]any)
	res := phase["resources"].([]any)[0].(map[string]any)
	if res["url"] != "https://nmap.org" {
		t.Errorf("resource url = %v", res["url"])
	}
	lab := phase["mandatory_labs"].([]any)[0].(map[string]any)
	if lab["url"] != "https://tryhackme.com" {
		t.Errorf("lab url = %v", lab["url"])
	}
}

func TestSanitize_MalformedEntriesDropped(t *testing.T) {
	doc := phaseWithResources(
		"just a string",
		map[string]any{"why": "no name or url at all"},
		map[string]any{"name": "Wireshark", "url": "#"},
	)

	phases := Sanitize(doc, testCorpus(t))["roadmap"].([]any)
	resources := phases[0].(map[string]any)["resources"].([]any)
	if len(resources) != 1 {
		t.Fatalf("resources = %d, want 1 survivor", len(resources))
	}
	res := resources[0].(map[string]any)
	if res["url"] != "https://www.wireshark.org" {
		t.Errorf("url = %v", res["url"])
	}
}

func TestSanitize_NilAndMissingPhases(t *testing.T) {
	if out := Sanitize(nil, testCorpus(t)); out != nil {
		t.Errorf("Sanitize(nil) = %v", out)
	}
	doc := map[string]any{"advice": "keep going"}
	if out := Sanitize(doc, testCorpus(t)); out["advice"] != "keep going" {
		t.Errorf("document without phases altered: %v", out)
	}
}
