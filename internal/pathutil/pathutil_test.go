package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHomePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	cases := map[string]string{
		"":            "",
		"  ":          "",
		"~":           filepath.Clean(home),
		"~/a/../b.db": filepath.Join(home, "b.db"),
		"/tmp/x/./y":  "/tmp/x/y",
		"rel/dir/":    "rel/dir",
	}
	for in, want := range cases {
		if got := ExpandHomePath(in); got != want {
			t.Fatalf("ExpandHomePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveIn(t *testing.T) {
	if got := ResolveIn("/etc/spool", "catalogs"); got != "/etc/spool/catalogs" {
		t.Fatalf("ResolveIn() = %q", got)
	}
	if got := ResolveIn("/etc/spool", "/abs/catalogs"); got != "/abs/catalogs" {
		t.Fatalf("ResolveIn(abs) = %q", got)
	}
	if got := ResolveIn("", "catalogs"); got != "catalogs" {
		t.Fatalf("ResolveIn(no base) = %q", got)
	}
}
