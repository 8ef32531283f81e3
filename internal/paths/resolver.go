// Package paths locates data files across heterogeneous deployment
// layouts. A serverless bundle, a container, and a developer checkout
// all place the data root somewhere different, and a bootstrap step may
// have changed the working directory; rather than trust any single
// ambient location, callers build an ordered candidate list and the
// resolver picks the first that exists.
package paths

import (
	"os"
	"path/filepath"
)

// Probe reports whether a path exists on the filesystem. It is injected
// so that resolution stays a pure function of (candidates, probe) and
// tests can supply a fake filesystem.
type Probe func(path string) bool

// statProbe is the default probe. Any stat error, not just
// fs.ErrNotExist, counts as "not here"; a broken candidate must not
// abort evaluation of the remaining ones.
func statProbe(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolver selects the first existing path from an ordered candidate
// list. It is nil-safe: a nil *Resolver behaves like one with the
// default probe.
type Resolver struct {
	probe Probe
}

// New creates a Resolver. A nil probe means os.Stat.
func New(probe Probe) *Resolver {
	if probe == nil {
		probe = statProbe
	}
	return &Resolver{probe: probe}
}

// Locate returns the first candidate that exists. If none exist, the
// first candidate is returned as a best-effort default so that callers
// always have a concrete path to report in errors and logs. Locate
// never fails; an empty candidate list yields "".
func (r *Resolver) Locate(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	probe := statProbe
	if r != nil && r.probe != nil {
		probe = r.probe
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if probe(c) {
			return c
		}
	}
	return candidates[0]
}

// layouts are the relative data roots used across deployment
// generations, newest first.
var layouts = []string{
	filepath.Join("public", "data"),
	filepath.Join("api", "data"),
	"data",
	".",
}

// Candidates builds the ordered candidate list for a data target named
// by rel (e.g. "daily-logs" or "transformation_log.md").
//
// Roots are ordered by trustworthiness: an explicitly configured
// function root reflects a deliberate bootstrap decision and beats the
// executable's own directory, which beats the working directory, which
// beats the fixed serverless mount point. Within each root every known
// layout generation is tried.
func Candidates(functionRoot, rel string) []string {
	var roots []string
	if functionRoot != "" {
		roots = append(roots, functionRoot)
	}
	if exe, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		roots = append(roots, cwd)
	}
	roots = append(roots, "/var/task")

	var out []string
	seen := make(map[string]bool)
	for _, root := range roots {
		for _, layout := range layouts {
			p := filepath.Join(root, layout, rel)
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
