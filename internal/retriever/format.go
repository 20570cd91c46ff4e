package retriever

import (
	"fmt"
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// minEntryChars is the smallest body budget worth emitting; below this
// the remaining space would hold only a useless fragment
const minEntryChars = 200

// FormatContext packs hits into a single prompt-ready string under a
// character budget. Each entry carries a numbered header with provenance
// and score, then the chunk body, truncated with an ellipsis when the
// remaining budget cannot hold it whole.
func FormatContext(hits []types.Hit, maxChars int) string {
	if len(hits) == 0 {
		return ""
	}

	var parts []string
	used := 0
	for i, h := range hits {
		header := fmt.Sprintf("[%d] %s :: %s (score=%.2f)", i+1, h.SourceFile, h.SectionTitle, h.FinalScore)
		body := strings.TrimSpace(h.Content)

		avail := maxChars - used - len(header) - 5
		if avail <= minEntryChars {
			break
		}
		if len(body) > avail {
			body = body[:avail-3] + "..."
		}

		entry := header + "\n" + body + "\n"
		parts = append(parts, entry)
		used += len(entry)
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}
