package chunker

import (
	"strings"

	"docsearch/internal/doctree"
)

// extractHeadings builds the heading forest from markdown content with a
// stack walk: a heading of level L closes every open heading of level >= L,
// attaches to the current stack top (or becomes a root) and is pushed.
//
// A node's span therefore runs to the next heading of equal-or-shallower
// level, which means a parent's raw content includes the lines of its
// nested children. Children extract their own content separately; the
// duplication is deliberate, so a broad section chunk and its focused
// subsection chunks can both be retrieved.
func extractHeadings(content string) []*doctree.HeadingNode {
	lines := strings.Split(content, "\n")

	var roots []*doctree.HeadingNode
	var stack []*doctree.HeadingNode

	// Skip the frontmatter block when the page carries one: scan past the
	// `***` separator until the closing `---` fence (or give up after ten
	// lines and resume at the first non-blank line).
	start := 0
	if sep := separatorIndex(lines); sep > -1 {
		for i := sep + 1; i < len(lines); i++ {
			if strings.Contains(lines[i], "---") || (i > sep+10 && strings.TrimSpace(lines[i]) != "") {
				start = i + 1
				break
			}
		}
	}

	for i := start; i < len(lines); i++ {
		m := headingRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		node := &doctree.HeadingNode{
			Level:     len(m[1]),
			Text:      strings.TrimSpace(m[2]),
			StartLine: i,
			EndLine:   len(lines) - 1,
		}
		node.Anchor = generateAnchor(node.Text)

		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack[len(stack)-1].EndLine = i - 1
			stack = stack[:len(stack)-1]
		}

		if len(stack) > 0 {
			top := stack[len(stack)-1]
			top.Children = append(top.Children, node)
		} else {
			roots = append(roots, node)
		}
		stack = append(stack, node)
	}

	for _, root := range roots {
		fillContent(root, lines)
	}
	return roots
}

// fillContent extracts the raw line span beneath each heading.
func fillContent(node *doctree.HeadingNode, lines []string) {
	start := node.StartLine + 1
	end := node.EndLine
	if start <= end && start < len(lines) {
		node.Content = strings.TrimSpace(strings.Join(lines[start:end+1], "\n"))
	}
	for _, child := range node.Children {
		fillContent(child, lines)
	}
}

// firstHeadingLine returns the index of the first heading line, or -1.
func firstHeadingLine(lines []string) int {
	for i, line := range lines {
		if headingRe.MatchString(line) {
			return i
		}
	}
	return -1
}
