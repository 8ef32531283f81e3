package logstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// masterRecord is the shape of master-log.json: program-level context
// plus optionally an embedded day list from older consolidation runs.
type masterRecord struct {
	Goal     GoalInfo    `json:"goal"`
	Baseline Baseline    `json:"baseline"`
	Targets  Targets     `json:"targets"`
	Days     []DayRecord `json:"days"`
}

// loadStructured reads the per-day JSON directory plus the master
// record. A malformed day file is skipped with a warning; one bad
// record must not take the whole dataset down.
func loadStructured(logger *slog.Logger, dailyDir, masterPath string) (*Snapshot, error) {
	snap := emptySnapshot()

	if masterPath != "" {
		if data, err := os.ReadFile(masterPath); err == nil {
			var m masterRecord
			if err := json.Unmarshal(data, &m); err != nil {
				logger.Warn("skipping malformed master record", "path", masterPath, "error", err)
			} else {
				snap.Goal = m.Goal
				if m.Baseline != nil {
					snap.Baseline = m.Baseline
				}
				if m.Targets != nil {
					snap.Targets = m.Targets
				}
				snap.Days = m.Days
			}
		}
	}

	entries, err := os.ReadDir(dailyDir)
	if err != nil {
		return snap, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	// Filenames are date-stamped, so lexical order is chronological
	// order; normalizeDays re-sorts on parsed dates anyway.
	sort.Strings(names)

	byDate := make(map[string]int, len(snap.Days))
	for i, d := range snap.Days {
		byDate[d.Date] = i
	}

	for _, name := range names {
		p := filepath.Join(dailyDir, name)
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("skipping unreadable day record", "path", p, "error", err)
			continue
		}
		var rec DayRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			logger.Warn("skipping malformed day record", "path", p, "error", err)
			continue
		}
		if rec.Date == "" {
			// Fall back to the filename stem, which is the ISO date.
			rec.Date = strings.TrimSuffix(name, ".json")
		}
		// A per-day file supersedes any embedded copy of the same date.
		if i, ok := byDate[rec.Date]; ok {
			snap.Days[i] = rec
			continue
		}
		byDate[rec.Date] = len(snap.Days)
		snap.Days = append(snap.Days, rec)
	}

	normalizeDays(snap.Days)
	return snap, nil
}
