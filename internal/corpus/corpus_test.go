package corpus

import (
	"strings"
	"testing"
)

func loadCorpus(t *testing.T) *Corpus {
	t.Helper()
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestLoad_HasExpectedCategories(t *testing.T) {
	c := loadCorpus(t)

	for _, cat := range []string{"youtube", "platforms_free", "certifications", "tools"} {
		if len(c.Category(cat)) == 0 {
			t.Errorf("category %q is empty", cat)
		}
	}
	if len(c.All()) == 0 {
		t.Fatal("corpus is empty")
	}
	for _, link := range c.All() {
		if link.Name == "" {
			t.Error("corpus entry with empty name")
		}
		if !strings.HasPrefix(link.URL, "https://") {
			t.Errorf("corpus entry %q has non-https URL %q", link.Name, link.URL)
		}
	}
}

func TestMatch_CandidateInsideCorpusName(t *testing.T) {
	c := loadCorpus(t)

	link, ok := c.Match("Nmap")
	if !ok {
		t.Fatal("expected a match for Nmap")
	}
	if link.Name != "Nmap Network Scanner" || link.URL != "https://nmap.org" {
		t.Errorf("match = %+v, want the corpus Nmap entry", link)
	}
}

func TestMatch_CorpusNameInsideCandidate(t *testing.T) {
	c := loadCorpus(t)

	link, ok := c.Match("the IppSec channel on YouTube")
	if !ok {
		t.Fatal("expected a match for a candidate containing IppSec")
	}
	if link.Name != "IppSec" {
		t.Errorf("match = %q, want IppSec", link.Name)
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	c := loadCorpus(t)

	if _, ok := c.Match("tryhackme"); !ok {
		t.Error("expected case-insensitive match for tryhackme")
	}
}

func TestMatch_NoMatch(t *testing.T) {
	c := loadCorpus(t)

	if link, ok := c.Match("Obscuretoolxyz"); ok {
		t.Errorf("unexpected match %+v for unknown name", link)
	}
	if _, ok := c.Match("   "); ok {
		t.Error("blank name should not match")
	}
}

func TestCategories_SortedAndStable(t *testing.T) {
	c := loadCorpus(t)

	cats := c.Categories()
	for i := 1; i < len(cats); i++ {
		if cats[i-1] >= cats[i] {
			t.Fatalf("categories not sorted: %v", cats)
		}
	}
}
