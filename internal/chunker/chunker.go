package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// Section title used for content preceding the first "## " heading.
const IntroductionTitle = "Introduction"

// Section title used when a document has no "## " headings at all.
const FullDocumentTitle = "Full"

var (
	docTitleRe     = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	sectionTitleRe = regexp.MustCompile(`(?m)^##\s+(.+)$`)
)

// SplitMarkdown splits raw markdown into section chunks. The filename is
// recorded as chunk provenance and doubles as the document title when the
// document has no top-level heading. The result is never empty for
// non-empty input.
func SplitMarkdown(content, filename string) []types.Chunk {
	docTitle := filename
	if m := docTitleRe.FindStringSubmatch(content); m != nil {
		docTitle = strings.TrimSpace(m[1])
	}

	sections := splitOnH2(content)
	if len(sections) == 0 {
		// No second-level headings: the whole document is one chunk.
		return []types.Chunk{newChunk(filename, docTitle, FullDocumentTitle, content)}
	}

	chunks := make([]types.Chunk, 0, len(sections))
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		title := IntroductionTitle
		if m := sectionTitleRe.FindStringSubmatch(section); m != nil {
			title = strings.TrimSpace(m[1])
		}
		chunks = append(chunks, newChunk(filename, docTitle, title, section))
	}

	if len(chunks) == 0 {
		return []types.Chunk{newChunk(filename, docTitle, FullDocumentTitle, content)}
	}
	return chunks
}

// splitOnH2 splits content into segments, each starting at a "## " heading
// line. The segment preceding the first heading is included. Returns nil
// when the content has no "## " headings.
func splitOnH2(content string) []string {
	lines := strings.Split(content, "\n")

	starts := make([]int, 0, 8)
	for i, line := range lines {
		if isH2(line) {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil
	}

	var sections []string
	if starts[0] > 0 {
		sections = append(sections, strings.Join(lines[:starts[0]], "\n"))
	}
	for i, start := range starts {
		end := len(lines)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		sections = append(sections, strings.Join(lines[start:end], "\n"))
	}
	return sections
}

func isH2(line string) bool {
	if !strings.HasPrefix(line, "##") {
		return false
	}
	rest := line[2:]
	// "### deeper" headings stay inside their parent section.
	if strings.HasPrefix(rest, "#") {
		return false
	}
	return len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t')
}

// newChunk builds a chunk with the two-line provenance header and a
// computed content fingerprint.
func newChunk(filename, docTitle, sectionTitle, body string) types.Chunk {
	content := strings.TrimSpace(fmt.Sprintf("[From: %s]\n# %s\n\n%s", filename, docTitle, body))
	c := types.Chunk{
		SourceFile:   filename,
		DocTitle:     docTitle,
		SectionTitle: sectionTitle,
		Content:      content,
	}
	c.ComputeContentHash()
	return c
}
