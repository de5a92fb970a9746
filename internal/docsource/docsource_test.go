package docsource

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListAndLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "intro.mdx"), "# Intro")
	writeFile(t, filepath.Join(root, "topics", "lifecycle.md"), "# Lifecycle")
	writeFile(t, filepath.Join(root, "notes.txt"), "not a doc")

	src := New(root)
	docs, err := src.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs: %+v", len(docs), docs)
	}
	if docs[0].Page != "intro" || docs[1].Page != "topics/lifecycle" {
		t.Errorf("pages = %q, %q", docs[0].Page, docs[1].Page)
	}

	content, err := src.Load("topics/lifecycle")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if content != "# Lifecycle" {
		t.Errorf("content = %q", content)
	}
}

func TestLoadMissingPage(t *testing.T) {
	src := New(t.TempDir())
	if _, err := src.Load("ghost"); err == nil {
		t.Error("expected error for missing page")
	}
}

func TestLoadRejectsTraversal(t *testing.T) {
	src := New(t.TempDir())
	if _, err := src.Load("../etc/passwd"); err == nil {
		t.Error("expected error for path traversal")
	}
}
