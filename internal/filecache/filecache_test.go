package filecache

import (
	"io"
	"os"
	"strings"
	"testing"
)

func TestSaveAndOpen(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	key := Key("http://support.example.com/media/photo.png")
	path, err := cache.Save(strings.NewReader("png bytes"), key, "photo.png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasSuffix(path, "photo.png") {
		t.Errorf("original filename lost: %q", path)
	}

	f, err := cache.Open(key, "photo.png")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = f.Close() }()
	data, _ := io.ReadAll(f)
	if string(data) != "png bytes" {
		t.Errorf("content: got %q", data)
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("http://support.example.com/media/doc.pdf")
	first, err := cache.Save(strings.NewReader("original"), key, "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}

	// The second save must not touch the stored bytes.
	second, err := cache.Save(strings.NewReader("different"), key, "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "original" {
		t.Errorf("repeated save overwrote the cached file: %q", data)
	}
}

func TestOpenMissing(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Open(Key("http://nowhere"), ""); !os.IsNotExist(err) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestKeyIsStable(t *testing.T) {
	a := Key("http://x/file")
	b := Key("http://x/file")
	if a != b {
		t.Errorf("key must be deterministic: %q vs %q", a, b)
	}
	if a == Key("http://x/other") {
		t.Error("distinct URLs must not collide")
	}
}
