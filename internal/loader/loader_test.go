package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc1.txt", "The butler was in the kitchen.")
	writeFile(t, dir, "doc2.txt", "The cook left at 8:45pm.")
	writeFile(t, dir, "notes.md", "not evidence")
	writeFile(t, dir, "empty.txt", "   \n")

	docs, err := New(dir, zap.NewNop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "doc1.txt" || docs[1].ID != "doc2.txt" {
		t.Errorf("unexpected IDs: %s, %s", docs[0].ID, docs[1].ID)
	}
	if docs[0].Text != "The butler was in the kitchen." {
		t.Errorf("unexpected text: %q", docs[0].Text)
	}
}

func TestLoad_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "evidence")
	docs, err := New(dir, zap.NewNop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %d", len(docs))
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("evidence dir was not created: %v", err)
	}
}

func TestList_SortedTxtOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.TXT", "a")
	writeFile(t, dir, "c.pdf", "c")

	names, err := New(dir, zap.NewNop()).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "a.TXT" || names[1] != "b.txt" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc1.txt", "contents here")

	l := New(dir, zap.NewNop())

	content, err := l.Read("doc1.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content != "contents here" {
		t.Errorf("content = %q", content)
	}
}

func TestRead_RejectsTraversalAndNonTxt(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, zap.NewNop())

	for _, name := range []string{"../secret.txt", "sub/doc.txt", "doc.pdf", ".."} {
		if _, err := l.Read(name); err == nil {
			t.Errorf("Read(%q) should fail", name)
		}
	}
}

func TestRead_NotFound(t *testing.T) {
	l := New(t.TempDir(), zap.NewNop())
	_, err := l.Read("missing.txt")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}
