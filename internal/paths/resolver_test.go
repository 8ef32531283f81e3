package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocate_FirstExisting(t *testing.T) {
	existing := map[string]bool{
		"/deploy/data/daily-logs": true,
		"/home/dev/data":          true,
	}
	r := New(func(p string) bool { return existing[p] })

	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{
			"first match wins",
			[]string{"/deploy/data/daily-logs", "/home/dev/data"},
			"/deploy/data/daily-logs",
		},
		{
			"skips missing candidates",
			[]string{"/nope", "/also/nope", "/home/dev/data"},
			"/home/dev/data",
		},
		{
			"falls back to first when none exist",
			[]string{"/nope", "/also/nope"},
			"/nope",
		},
		{
			"empty candidates are skipped",
			[]string{"", "/home/dev/data"},
			"/home/dev/data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Locate(tt.candidates); got != tt.want {
				t.Errorf("Locate(%v) = %q, want %q", tt.candidates, got, tt.want)
			}
		})
	}
}

func TestLocate_EmptyList(t *testing.T) {
	r := New(nil)
	if got := r.Locate(nil); got != "" {
		t.Errorf("Locate(nil) = %q, want empty", got)
	}
}

func TestLocate_NilReceiver(t *testing.T) {
	var r *Resolver
	if got := r.Locate([]string{"/does/not/exist"}); got != "/does/not/exist" {
		t.Errorf("nil Locate = %q, want first candidate", got)
	}
}

func TestLocate_ProbePanicSafety(t *testing.T) {
	// A probe that reports false for everything must still terminate
	// with the first candidate, never an error.
	r := New(func(string) bool { return false })
	got := r.Locate([]string{"/a", "/b", "/c"})
	if got != "/a" {
		t.Errorf("Locate = %q, want %q", got, "/a")
	}
}

func TestLocate_RealFilesystem(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "daily-logs")
	if err := os.MkdirAll(real, 0o755); err != nil {
		t.Fatal(err)
	}

	r := New(nil)
	got := r.Locate([]string{
		filepath.Join(dir, "missing", "daily-logs"),
		real,
	})
	if got != real {
		t.Errorf("Locate = %q, want %q", got, real)
	}
}

func TestCandidates_FunctionRootFirst(t *testing.T) {
	got := Candidates("/fn/root", "daily-logs")
	if len(got) == 0 {
		t.Fatal("no candidates")
	}
	want := filepath.Join("/fn/root", "public", "data", "daily-logs")
	if got[0] != want {
		t.Errorf("first candidate = %q, want %q", got[0], want)
	}
}

func TestCandidates_NoFunctionRoot(t *testing.T) {
	got := Candidates("", "transformation_log.md")
	for _, c := range got {
		if strings.HasPrefix(c, string(filepath.Separator)+"fn") {
			t.Errorf("unexpected function-root candidate %q", c)
		}
		if !strings.HasSuffix(c, "transformation_log.md") {
			t.Errorf("candidate %q does not end with target", c)
		}
	}
}

func TestCandidates_Deduplicated(t *testing.T) {
	got := Candidates("/fn/root", "x")
	seen := make(map[string]bool)
	for _, c := range got {
		if seen[c] {
			t.Errorf("duplicate candidate %q", c)
		}
		seen[c] = true
	}
}

func TestCandidates_IncludesServerlessMount(t *testing.T) {
	got := Candidates("", "daily-logs")
	found := false
	for _, c := range got {
		if strings.HasPrefix(c, "/var/task") {
			found = true
		}
	}
	if !found {
		t.Error("expected /var/task fallback candidate")
	}
}
