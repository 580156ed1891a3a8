package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestLoadPriority(t *testing.T) {
	m := NewManager(nil)
	m.AddRoot(fstest.MapFS{
		"Hiyori/Hiyori.moc3": {Data: []byte("base")},
		"Hiyori/only.txt":    {Data: []byte("base only")},
	})
	m.AddRoot(fstest.MapFS{
		"Hiyori/Hiyori.moc3": {Data: []byte("override")},
	})

	data, err := m.Load("Hiyori/Hiyori.moc3")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "override" {
		t.Errorf("got %q, want the last added root to win", data)
	}

	data, err = m.Load("Hiyori/./only.txt")
	if err != nil {
		t.Fatalf("Load fallback: %v", err)
	}
	if string(data) != "base only" {
		t.Errorf("got %q, want %q", data, "base only")
	}
}

func TestLoadMissing(t *testing.T) {
	m := NewManager(nil)
	m.AddRoot(fstest.MapFS{})

	if _, err := m.Load("nope.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load missing = %v, want fs.ErrNotExist", err)
	}
	if _, err := m.Load("../escape"); !errors.Is(err, fs.ErrInvalid) {
		t.Errorf("Load escaping path = %v, want fs.ErrInvalid", err)
	}
}

func TestLoadCaches(t *testing.T) {
	cache := NewCache()
	m := NewManager(cache)
	m.AddRoot(fstest.MapFS{"a.bin": {Data: []byte{1, 2, 3}}})

	for i := 0; i < 3; i++ {
		if _, err := m.Load("a.bin"); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}
	hits, misses := cache.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 2, 1", hits, misses)
	}

	cache.Clear()
	if hits, misses := cache.Stats(); hits != 0 || misses != 0 {
		t.Errorf("Stats after Clear = %d, %d", hits, misses)
	}
}

func TestAddDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := NewManager(nil)
	if err := m.AddDir(dir); err != nil {
		t.Fatalf("AddDir: %v", err)
	}
	data, err := m.Load("x.txt")
	if err != nil || string(data) != "hi" {
		t.Errorf("Load = %q, %v", data, err)
	}

	if err := m.AddDir(filepath.Join(dir, "x.txt")); err == nil {
		t.Error("AddDir on a file should fail")
	}
	if err := m.AddDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("AddDir on a missing path should fail")
	}
}

func TestPurgeRereadsChangedFiles(t *testing.T) {
	root := fstest.MapFS{"A/A.moc3": {Data: []byte("v1")}}
	cache := NewCache()
	m := NewManager(cache)
	m.AddRoot(root)

	if data, _ := m.Load("A/A.moc3"); string(data) != "v1" {
		t.Fatalf("first load = %q, want v1", data)
	}
	root["A/A.moc3"] = &fstest.MapFile{Data: []byte("v2")}

	if data, _ := m.Load("A/A.moc3"); string(data) != "v1" {
		t.Errorf("cached load = %q, want v1 before Purge", data)
	}

	m.Purge()
	data, err := m.Load("A/A.moc3")
	if err != nil {
		t.Fatalf("Load after Purge: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("load after Purge = %q, want v2", data)
	}
}

func TestPurgeWithoutCache(t *testing.T) {
	m := NewManager(nil)
	m.Purge()
	var _ Purger = m
}
