package chunker

import (
	"fmt"
	"strings"
	"testing"

	"docsearch/internal/doctree"
)

const testBaseURL = "https://docs.example.com"

// docHeader mirrors the exported page layout: title, URL line, a ***
// separator, frontmatter-style description, then the --- fence that
// marks the start of body content.
const docHeader = "# Guide\nURL: /docs/guide\n\n***\n\nA test guide.\n\n---\n\n"

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func TestChunkIndicesSequential(t *testing.T) {
	doc := docHeader +
		"## First\n\nContent one.\n\n" +
		"## Second\n\nContent two.\n\n" +
		"### Nested\n\nContent three.\n"

	res := Chunk(doc, testBaseURL, DefaultOptions())
	if len(res.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(res.Chunks))
	}
	for i, c := range res.Chunks {
		if c.Metadata.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.Metadata.ChunkIndex)
		}
		if c.Metadata.URL != "/docs/guide" {
			t.Errorf("chunk %d has url %q", i, c.Metadata.URL)
		}
	}
}

func TestChunkAtTargetBoundaryStaysSingle(t *testing.T) {
	opts := DefaultOptions()
	doc := docHeader + "## Section\n\n" + words(opts.TargetChunkSize) + "\n"

	res := Chunk(doc, testBaseURL, opts)
	if len(res.Chunks) != 1 {
		t.Fatalf("expected single chunk at target size, got %d", len(res.Chunks))
	}
	if res.Chunks[0].Metadata.HasOverlap {
		t.Error("single chunk should not be marked as overlapping")
	}
	if strings.Contains(res.Chunks[0].Metadata.HeadingPath, "Part") {
		t.Errorf("unsplit chunk got a part suffix: %q", res.Chunks[0].Metadata.HeadingPath)
	}
}

func TestChunkOverMaxSplits(t *testing.T) {
	opts := DefaultOptions()
	// Paragraphs of 100 words each, exceeding the max ceiling in total.
	var b strings.Builder
	b.WriteString(docHeader)
	b.WriteString("## Big Section\n\n")
	paragraphs := (opts.MaxChunkSize/100 + 2)
	for i := 0; i < paragraphs; i++ {
		b.WriteString(words(100))
		b.WriteString("\n\n")
	}

	res := Chunk(b.String(), testBaseURL, opts)
	if len(res.Chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(res.Chunks))
	}
	for i, c := range res.Chunks {
		if !c.Metadata.HasOverlap {
			t.Errorf("chunk %d of a split section should be marked overlapping", i)
		}
		wantSuffix := fmt.Sprintf("(Part %d/%d)", i+1, len(res.Chunks))
		if !strings.HasSuffix(c.Metadata.HeadingPath, wantSuffix) {
			t.Errorf("chunk %d heading path %q missing %q", i, c.Metadata.HeadingPath, wantSuffix)
		}
	}

	// Backward overlap: each chunk after the first starts with the tail of
	// the previous raw part.
	parts := splitAtNaturalBoundaries(strings.TrimSpace(strings.Repeat(words(100)+"\n\n", paragraphs)), opts.TargetChunkSize)
	for i := 1; i < len(parts) && i < len(res.Chunks); i++ {
		tail := tailWords(parts[i-1], opts.OverlapSize)
		if !strings.HasPrefix(res.Chunks[i].Content, tail) {
			t.Errorf("chunk %d does not begin with previous part's tail", i)
		}
	}
}

func TestSplitAtNaturalBoundariesRespectsTarget(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat(words(150)+"\n\n", 6))
	parts := splitAtNaturalBoundaries(text, 400)
	if len(parts) < 2 {
		t.Fatalf("expected a split, got %d part(s)", len(parts))
	}
	for i, p := range parts {
		if n := countWords(p); n > 400 {
			t.Errorf("part %d has %d words, over target", i, n)
		}
		if p == "" {
			t.Errorf("part %d is empty", i)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third? Trailing")
	want := []string{"First one.", "Second one!", "Third?", "Trailing"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHeadingPathReflectsHierarchy(t *testing.T) {
	doc := docHeader +
		"## Rules\n\nTop content.\n\n" +
		"### Scoring\n\nNested content.\n"

	res := Chunk(doc, testBaseURL, DefaultOptions())
	if len(res.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
	}
	if got := res.Chunks[1].Metadata.HeadingPath; got != "Rules > Scoring" {
		t.Errorf("heading path = %q, want %q", got, "Rules > Scoring")
	}
	if got := res.Chunks[1].Metadata.Section; got != "Rules" {
		t.Errorf("section = %q, want Rules", got)
	}
	if got := res.Chunks[1].Metadata.Subsection; got != "Scoring" {
		t.Errorf("subsection = %q, want Scoring", got)
	}
}

func TestChunkTypeClassification(t *testing.T) {
	doc := docHeader +
		"## Definitions\n\nA root section.\n\n" +
		"### Detail\n\nA subsection.\n\n" +
		"### Usage Example\n\nShows an example.\n\n" +
		"## Example Workflows\n\nRoot level two containing example. Definition wins.\n"

	res := Chunk(doc, testBaseURL, DefaultOptions())
	if len(res.Chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(res.Chunks))
	}
	wantTypes := []doctree.ChunkType{
		doctree.ChunkDefinition,
		doctree.ChunkSubsection,
		doctree.ChunkExample,
		doctree.ChunkDefinition, // root level-2 outranks the example keyword
	}
	for i, want := range wantTypes {
		if got := res.Chunks[i].Metadata.ChunkType; got != want {
			t.Errorf("chunk %d (%s) type = %q, want %q", i, res.Chunks[i].Metadata.HeadingPath, got, want)
		}
	}
}

func TestIntroChunkWordFloor(t *testing.T) {
	short := words(15)
	long := words(25)

	res := Chunk(short+"\n\n## Section\n\nBody.\n", testBaseURL, DefaultOptions())
	if len(res.Chunks) != 1 {
		t.Fatalf("short preamble: expected 1 chunk, got %d", len(res.Chunks))
	}
	if res.Chunks[0].Metadata.ChunkType == doctree.ChunkIntro {
		t.Error("short preamble should not produce an intro chunk")
	}

	res = Chunk(long+"\n\n## Section\n\nBody.\n", testBaseURL, DefaultOptions())
	if len(res.Chunks) != 2 {
		t.Fatalf("long preamble: expected 2 chunks, got %d", len(res.Chunks))
	}
	intro := res.Chunks[0]
	if intro.Metadata.ChunkType != doctree.ChunkIntro {
		t.Fatalf("first chunk type = %q, want intro", intro.Metadata.ChunkType)
	}
	if intro.Metadata.ChunkIndex != 0 {
		t.Errorf("intro index = %d, want 0", intro.Metadata.ChunkIndex)
	}
	if res.Chunks[1].Metadata.ChunkIndex != 1 {
		t.Errorf("following chunk index = %d, want 1", res.Chunks[1].Metadata.ChunkIndex)
	}
	if intro.Metadata.Title == "" || !strings.HasSuffix(intro.Metadata.HeadingPath, " - Introduction") {
		t.Errorf("intro heading path = %q", intro.Metadata.HeadingPath)
	}
}

func TestNoHeadingsNoChunks(t *testing.T) {
	res := Chunk(words(200), testBaseURL, DefaultOptions())
	if len(res.Chunks) != 0 {
		t.Fatalf("headingless document should yield zero chunks, got %d", len(res.Chunks))
	}
}

func TestParseMetadata(t *testing.T) {
	doc := "# Getting Started\nURL: /docs/start\n\n***\n\n" +
		"A quick tour of the system.\n\n---\n\n## Install\n\nRun it.\n"

	res := Chunk(doc, testBaseURL, DefaultOptions())
	m := res.Metadata
	if m.Title != "Getting Started" {
		t.Errorf("title = %q", m.Title)
	}
	if m.URL != "/docs/start" {
		t.Errorf("url = %q", m.URL)
	}
	if m.Description != "A quick tour of the system." {
		t.Errorf("description = %q", m.Description)
	}
	if m.FullURL != testBaseURL+"/docs/start" {
		t.Errorf("full url = %q", m.FullURL)
	}
}

func TestParseMetadataDefaults(t *testing.T) {
	m := parseMetadata("plain text without structure", testBaseURL)
	if m.Title != "Untitled Document" {
		t.Errorf("title default = %q", m.Title)
	}
	if m.URL != "/docs/unknown" {
		t.Errorf("url default = %q", m.URL)
	}
}

func TestGenerateAnchor(t *testing.T) {
	cases := map[string]string{
		"Getting Started":     "getting-started",
		"What's New?":         "whats-new",
		"A  --  B":            "a-b",
		"Rules & Regulations": "rules-regulations",
	}
	for in, want := range cases {
		if got := generateAnchor(in); got != want {
			t.Errorf("generateAnchor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContextualContentCarriesBreadcrumb(t *testing.T) {
	doc := docHeader + "## Rules\n\nContent.\n\n### Scoring\n\nNested.\n"

	res := Chunk(doc, testBaseURL, DefaultOptions())
	got := res.Chunks[1].ContextualContent
	if !strings.HasPrefix(got, "Context: Rules > Scoring\n\n## Scoring\n\n") {
		t.Errorf("contextual content = %q", got)
	}

	opts := DefaultOptions()
	opts.IncludeHierarchicalContext = false
	res = Chunk(doc, testBaseURL, opts)
	if strings.Contains(res.Chunks[1].ContextualContent, "Context:") {
		t.Error("context prefix present with hierarchy disabled")
	}
}
