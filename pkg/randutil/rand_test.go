package randutil

import (
	"strings"
	"testing"
)

func TestWord(t *testing.T) {
	for i := 0; i < 100; i++ {
		w := Word()
		if w == "" {
			t.Fatal("empty word")
		}
		if w != strings.ToLower(w) {
			t.Fatalf("word %q must be in lower-case", w)
		}
		if strings.ContainsAny(w, "/\\ ") {
			t.Fatalf("word %q is not a valid path element", w)
		}
	}
}
