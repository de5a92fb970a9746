package chunker

import (
	"regexp"
	"strings"

	"docsearch/internal/doctree"
)

var (
	titleRe   = regexp.MustCompile(`^#\s+(.+)$`)
	urlRe     = regexp.MustCompile(`^URL:\s+(.+)$`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

	anchorStripRe    = regexp.MustCompile(`[^\w\s-]`)
	anchorSpaceRe    = regexp.MustCompile(`\s+`)
	anchorCollapseRe = regexp.MustCompile(`-+`)
)

// parseMetadata reads the structured page header: the title from the first
// line (`# Title`), the canonical URL from the second (`URL: ...`) and an
// optional one-line description after a `***` separator. Missing fields
// fall back to defaults rather than failing.
func parseMetadata(content, baseURL string) doctree.DocumentMeta {
	lines := strings.Split(content, "\n")

	title := "Untitled Document"
	if len(lines) > 0 {
		if m := titleRe.FindStringSubmatch(lines[0]); m != nil {
			title = m[1]
		}
	}

	url := "/docs/unknown"
	if len(lines) > 1 {
		if m := urlRe.FindStringSubmatch(lines[1]); m != nil {
			url = m[1]
		}
	}

	var description string
	sep := separatorIndex(lines)
	if sep > -1 && sep < len(lines)-1 {
		for i := sep + 1; i < len(lines); i++ {
			line := strings.TrimSpace(lines[i])
			if line == "" || strings.Contains(line, "---") {
				continue
			}
			if strings.HasPrefix(line, "title:") || strings.HasPrefix(line, "icon:") {
				continue
			}
			description = line
			break
		}
	}

	return doctree.DocumentMeta{
		Title:       title,
		URL:         url,
		Description: description,
		BaseURL:     baseURL,
		FullURL:     baseURL + url,
	}
}

// separatorIndex finds the `***` line that ends the frontmatter block,
// or -1 if the page has none.
func separatorIndex(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) == "***" {
			return i
		}
	}
	return -1
}

// generateAnchor slugs heading text into a URL-safe fragment.
func generateAnchor(text string) string {
	s := strings.ToLower(text)
	s = anchorStripRe.ReplaceAllString(s, "")
	s = anchorSpaceRe.ReplaceAllString(s, "-")
	s = anchorCollapseRe.ReplaceAllString(s, "-")
	return strings.TrimSpace(s)
}

// countWords counts whitespace-delimited words.
func countWords(text string) int {
	return len(strings.Fields(text))
}
