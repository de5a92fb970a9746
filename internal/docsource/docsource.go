// Package docsource reads markdown documents from the local docs
// directory for indexing.
package docsource

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Document is one source page.
type Document struct {
	// Page is the path relative to the docs root, without extension.
	Page string `json:"page"`
	Path string `json:"path"`
}

// Source lists and loads documents beneath a root directory.
type Source struct {
	root string
}

func New(root string) *Source {
	return &Source{root: root}
}

// List walks the docs tree and returns every markdown page, sorted by
// page name. Only .md and .mdx files are considered documents.
func (s *Source) List() ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".mdx" {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		docs = append(docs, Document{
			Page: strings.TrimSuffix(filepath.ToSlash(rel), ext),
			Path: path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk docs dir %s: %w", s.root, err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Page < docs[j].Page })
	return docs, nil
}

// Load reads one page's content by its page name. The page name must
// resolve inside the docs root.
func (s *Source) Load(page string) (string, error) {
	if strings.Contains(page, "..") {
		return "", fmt.Errorf("invalid page name %q", page)
	}
	for _, ext := range []string{".mdx", ".md"} {
		path := filepath.Join(s.root, filepath.FromSlash(page)+ext)
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read page %s: %w", page, err)
		}
	}
	return "", fmt.Errorf("page %q not found under %s", page, s.root)
}
