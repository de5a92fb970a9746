package chunker

import (
	"fmt"
	"strings"

	"docsearch/internal/doctree"
)

// Options controls chunking behavior. Zero values are replaced with the
// defaults from DefaultOptions.
type Options struct {
	TargetChunkSize int // preferred upper bound in words; content at or under is never split
	MaxChunkSize    int // hard ceiling in words before forced splitting
	OverlapSize     int // words spliced from neighboring sub-chunks for continuity

	// RespectCodeBlocks is a reserved policy flag: splitting must not break
	// inside a fenced code block. Natural-boundary splitting only cuts at
	// blank lines and sentence ends, which keeps fences intact in practice.
	RespectCodeBlocks bool

	// IncludeHierarchicalContext prefixes each chunk's embedding text with
	// its "Context: ..." breadcrumb.
	IncludeHierarchicalContext bool
}

// DefaultOptions returns the production chunking configuration.
func DefaultOptions() Options {
	return Options{
		TargetChunkSize:            400,
		MaxChunkSize:               800,
		OverlapSize:                75,
		RespectCodeBlocks:          true,
		IncludeHierarchicalContext: true,
	}
}

// Result is the output of chunking one document.
type Result struct {
	Metadata doctree.DocumentMeta
	Chunks   []doctree.Chunk
	Headings []*doctree.HeadingNode
}

// Chunk deterministically transforms one document's markdown into an
// ordered list of bounded-size, context-annotated chunks. Pure function:
// no I/O, safe for concurrent use.
//
// A document without any headings produces zero chunks; callers should
// treat a zero count alongside non-empty source as a condition worth
// logging rather than an error.
func Chunk(content, baseURL string, opts Options) Result {
	opts = opts.withDefaults()

	meta := parseMetadata(content, baseURL)
	headings := extractHeadings(content)
	chunks := chunksFromHeadings(headings, meta, opts)

	if intro := introChunk(content, meta, opts); intro != nil {
		chunks = append([]doctree.Chunk{*intro}, chunks...)
		for i := 1; i < len(chunks); i++ {
			chunks[i].Metadata.ChunkIndex = i
		}
	}

	return Result{Metadata: meta, Chunks: chunks, Headings: headings}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TargetChunkSize <= 0 {
		o.TargetChunkSize = def.TargetChunkSize
	}
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = def.MaxChunkSize
	}
	if o.OverlapSize < 0 {
		o.OverlapSize = def.OverlapSize
	}
	return o
}

// chunksFromHeadings walks the forest depth-first, pre-order, carrying
// the live ancestor chain so heading paths always reflect the current
// parents.
func chunksFromHeadings(headings []*doctree.HeadingNode, meta doctree.DocumentMeta, opts Options) []doctree.Chunk {
	var chunks []doctree.Chunk
	chunkIndex := 0

	var process func(h *doctree.HeadingNode, parents []*doctree.HeadingNode)
	process = func(h *doctree.HeadingNode, parents []*doctree.HeadingNode) {
		headingPath := joinHeadingPath(h, parents)
		contentWords := countWords(h.Content)
		chunkType := classifyChunk(h, parents)

		section := ""
		if len(parents) > 0 {
			section = parents[0].Text
		}
		subsection := ""
		if h.Level == 3 {
			subsection = h.Text
		}

		if contentWords <= opts.MaxChunkSize {
			// Fits in one chunk.
			chunks = append(chunks, doctree.Chunk{
				Content:           h.Content,
				ContextualContent: contextualContent(headingPath, h.Text, h.Content, opts),
				Metadata: doctree.ChunkMetadata{
					Title:       meta.Title,
					URL:         meta.FullURL,
					Section:     section,
					Subsection:  subsection,
					Anchor:      "#" + h.Anchor,
					HeadingPath: headingPath,
					ChunkType:   chunkType,
					ChunkIndex:  chunkIndex,
					WordCount:   contentWords,
					HasOverlap:  false,
				},
			})
			chunkIndex++
		} else {
			parts := splitAtNaturalBoundaries(h.Content, opts.TargetChunkSize)
			for i, part := range parts {
				first := i == 0
				last := i == len(parts)-1

				content := part
				if !first {
					content = tailWords(parts[i-1], opts.OverlapSize) + "\n\n" + content
				}
				if !last {
					content = content + "\n\n" + headWords(parts[i+1], opts.OverlapSize/2)
				}

				path := headingPath
				if len(parts) > 1 {
					path = fmt.Sprintf("%s (Part %d/%d)", headingPath, i+1, len(parts))
				}

				chunks = append(chunks, doctree.Chunk{
					Content:           content,
					ContextualContent: contextualContent(path, h.Text, content, opts),
					Metadata: doctree.ChunkMetadata{
						Title:       meta.Title,
						URL:         meta.FullURL,
						Section:     section,
						Subsection:  subsection,
						Anchor:      "#" + h.Anchor,
						HeadingPath: path,
						ChunkType:   chunkType,
						ChunkIndex:  chunkIndex,
						WordCount:   countWords(content),
						HasOverlap:  !first || !last,
					},
				})
				chunkIndex++
			}
		}

		for _, child := range h.Children {
			process(child, append(parents, h))
		}
	}

	for _, h := range headings {
		process(h, nil)
	}
	return chunks
}

// classifyChunk tags a heading's chunk type. The rules are evaluated in a
// fixed order and the last match wins: a root-level level-2 heading whose
// text contains "example" still classifies as a definition.
func classifyChunk(h *doctree.HeadingNode, parents []*doctree.HeadingNode) doctree.ChunkType {
	chunkType := doctree.ChunkSection
	if h.Level == 3 {
		chunkType = doctree.ChunkSubsection
	}
	if strings.Contains(strings.ToLower(h.Text), "example") {
		chunkType = doctree.ChunkExample
	}
	if len(parents) == 0 && h.Level == 2 {
		chunkType = doctree.ChunkDefinition
	}
	return chunkType
}

func joinHeadingPath(h *doctree.HeadingNode, parents []*doctree.HeadingNode) string {
	parts := make([]string, 0, len(parents)+1)
	for _, p := range parents {
		parts = append(parts, p.Text)
	}
	parts = append(parts, h.Text)
	return strings.Join(parts, " > ")
}

func contextualContent(headingPath, headingText, content string, opts Options) string {
	if opts.IncludeHierarchicalContext {
		return fmt.Sprintf("Context: %s\n\n## %s\n\n%s", headingPath, headingText, content)
	}
	return fmt.Sprintf("## %s\n\n%s", headingText, content)
}

// introMinWords is the floor below which pre-heading text is discarded
// instead of becoming an introduction chunk.
const introMinWords = 20

// introChunk captures the text before the first heading, when there is
// enough of it. Returns nil when the document starts with a heading, has
// no headings at all, or the preamble is under the word floor.
func introChunk(content string, meta doctree.DocumentMeta, opts Options) *doctree.Chunk {
	lines := strings.Split(content, "\n")
	first := firstHeadingLine(lines)
	if first <= 0 {
		return nil
	}

	intro := strings.TrimSpace(strings.Join(lines[:first], "\n"))
	if intro == "" || countWords(intro) < introMinWords {
		return nil
	}

	headingPath := meta.Title + " - Introduction"
	contextual := intro
	if opts.IncludeHierarchicalContext {
		contextual = fmt.Sprintf("Context: %s\n\n%s", headingPath, intro)
	}

	return &doctree.Chunk{
		Content:           intro,
		ContextualContent: contextual,
		Metadata: doctree.ChunkMetadata{
			Title:       meta.Title,
			URL:         meta.FullURL,
			HeadingPath: headingPath,
			ChunkType:   doctree.ChunkIntro,
			ChunkIndex:  0,
			WordCount:   countWords(intro),
			HasOverlap:  false,
		},
	}
}
