package doctree

// DocumentMeta is the header metadata of a documentation page.
type DocumentMeta struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	BaseURL     string `json:"baseUrl"`
	FullURL     string `json:"fullUrl"`
}

// HeadingNode is one heading and the text beneath it, up to the next
// heading of equal-or-shallower level. Nodes form a forest; the tree is
// rebuilt from scratch on every chunk request and never persisted.
type HeadingNode struct {
	Level     int            // 1-6
	Text      string         // heading text without the # markers
	Anchor    string         // URL-safe slug derived from Text
	StartLine int            // line index of the heading itself
	EndLine   int            // last line of this node's span
	Content   string         // raw lines after the heading, children included
	Children  []*HeadingNode // headings strictly nested under this one
}

// ChunkType tags what kind of passage a chunk holds.
type ChunkType string

const (
	ChunkIntro      ChunkType = "intro"
	ChunkSection    ChunkType = "section"
	ChunkSubsection ChunkType = "subsection"
	ChunkDefinition ChunkType = "definition"
	ChunkExample    ChunkType = "example"
)

// ChunkMetadata is the citation and placement metadata attached to a chunk.
// JSON field names match what the vector store persists and what search
// results expose.
type ChunkMetadata struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Section     string    `json:"section,omitempty"`
	Subsection  string    `json:"subsection,omitempty"`
	Anchor      string    `json:"anchor,omitempty"`
	HeadingPath string    `json:"headingPath"`
	ChunkType   ChunkType `json:"chunkType"`
	ChunkIndex  int       `json:"chunkIndex"`
	WordCount   int       `json:"wordCount"`
	HasOverlap  bool      `json:"hasOverlap"`
}

// Chunk is the unit of retrieval: a bounded-size passage with its
// breadcrumb-prefixed embedding text and metadata.
type Chunk struct {
	Content           string        `json:"content"`
	ContextualContent string        `json:"contextualContent"`
	Metadata          ChunkMetadata `json:"metadata"`
}
