package roadmap

import (
	"fmt"
	"strings"

	"github.com/kaliguru/kaliguru/internal/corpus"
	"github.com/kaliguru/kaliguru/internal/gateway"
)

const systemPrompt = `You are KaliGuru, a cybersecurity mentor who builds personalized study roadmaps.
Respond with a single JSON object and nothing else: no markdown fences, no commentary.
Schema:
{
  "roadmap": [
    {
      "phase": 1,
      "title": "string",
      "duration_weeks": 4,
      "focus": "string",
      "resources": [{"type": "string", "name": "string", "url": "string", "why": "string"}],
      "mandatory_labs": [{"type": "string", "name": "string", "url": "string", "why": "string"}],
      "milestone": "string"
    }
  ],
  "total_duration_months": 6,
  "weekly_hours": 10,
  "advice": "string"
}
Only recommend resources from the reference list below. Use their exact names and URLs.`

// buildMessages assembles the completion request for a roadmap. The
// reference corpus is inlined so the model links to known resources
// instead of inventing URLs.
func buildMessages(level, cert string, weaknesses []string, c *corpus.Corpus) []gateway.Message {
	var refs strings.Builder
	refs.WriteString("\n\nReference resources:\n")
	for _, cat := range c.Categories() {
		refs.WriteString(cat + ":\n")
		for _, link := range c.Category(cat) {
			fmt.Fprintf(&refs, "- %s | %s | %s\n", link.Name, link.URL, link.Description)
		}
	}

	user := fmt.Sprintf("Build a study roadmap toward %s for a %s-level learner.", cert, level)
	if len(weaknesses) > 0 {
		user += " Weak areas to shore up: " + strings.Join(weaknesses, ", ") + "."
	}
	user += " Phases should build on each other and every phase needs hands-on labs."

	return []gateway.Message{
		{Role: "system", Content: systemPrompt + refs.String()},
		{Role: "user", Content: user},
	}
}
