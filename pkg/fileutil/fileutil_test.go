package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMkdirAll(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "checkpoints", "otter")
	b := filepath.Join(root, "generated_data", "otter")

	for i := 0; i < 2; i++ {
		if err := MkdirAll(0755, a, b); err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
	}
	for _, d := range []string{a, b} {
		if !Exist(d) {
			t.Fatalf("%q expected to exist", d)
		}
	}
	if err := IsDirWriteable(a); err != nil {
		t.Fatal(err)
	}
	if Exist(filepath.Join(a, ".touch")) {
		t.Fatal(".touch file was not removed")
	}
}

func TestMkdirAllFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(p, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := MkdirAll(0755, p); err == nil {
		t.Fatalf("expected error for regular file %q", p)
	}
	if err := MkdirAll(0755, ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestExist(t *testing.T) {
	if Exist("") {
		t.Fatal("empty path must not exist")
	}
	if Exist(filepath.Join(t.TempDir(), "missing")) {
		t.Fatal("missing path must not exist")
	}
}
