package user

import (
	"strings"
	"testing"
)

func TestMetadata(t *testing.T) {
	md := Metadata("pgan")
	if md["Kind"] != "pgan" {
		t.Fatalf("unexpected kind %q", md["Kind"])
	}
	if !strings.HasPrefix(md["User"], "user=") {
		t.Fatalf("unexpected user %q", md["User"])
	}
}
