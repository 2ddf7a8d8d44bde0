package roadmap

import (
	"net/url"
	"strings"

	"github.com/kaliguru/kaliguru/internal/corpus"
)

// Alias tables for the semantic fields models rename at will.
var (
	nameAliases        = []string{"name", "title", "channel"}
	descriptionAliases = []string{"why", "description", "recommended"}
	phaseKeys          = []string{"roadmap", "phases"}
)

// Sanitize repairs resource links embedded in a parsed roadmap
// document. Corpus data is trusted; model-declared names and URLs are
// not, so a corpus match replaces both. Pure: operates only on the
// given document, no network or storage access.
func Sanitize(doc map[string]any, c *corpus.Corpus) map[string]any {
	if doc == nil {
		return doc
	}

	for _, key := range phaseKeys {
		phases, ok := doc[key].([]any)
		if !ok {
			continue
		}
		for _, p := range phases {
			phase, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if resources, ok := phase["resources"].([]any); ok {
				phase["resources"] = cleanResources(resources, c)
			}
			if labs, ok := phase["mandatory_labs"].([]any); ok {
				phase["mandatory_labs"] = cleanResources(labs, c)
			}
		}
		break
	}
	return doc
}

// cleanResources normalizes each resource to {type, name, url,
// description}, repairing absent, placeholder, or non-absolute URLs.
func cleanResources(items []any, c *corpus.Corpus) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		res, ok := item.(map[string]any)
		if !ok {
			continue
		}

		name := firstString(res, nameAliases)
		rawURL, _ := res["url"].(string)
		if name == "" && rawURL == "" {
			continue
		}
		if name == "" {
			name = "Resource"
		}

		cleanURL := rawURL
		if !isAbsoluteURL(rawURL) {
			if match, ok := c.Match(name); ok {
				name = match.Name
				cleanURL = match.URL
			} else {
				cleanURL = SearchURL(name)
			}
		}

		resType, _ := res["type"].(string)
		if resType == "" {
			resType = "Resource"
		}

		out = append(out, map[string]any{
			"type":        resType,
			"name":        name,
			"url":         cleanURL,
			"description": firstString(res, descriptionAliases),
		})
	}
	return out
}

// SearchURL builds the deterministic fallback link for a resource the
// corpus does not know.
func SearchURL(name string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(name+" cybersecurity resource")
}

// isAbsoluteURL reports whether raw is a well-formed absolute http(s)
// URL. Placeholders like "#" and bare paths fail this check.
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// firstString returns the first non-blank string among the aliased
// keys.
func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
