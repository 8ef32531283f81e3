package logstore

import (
	"log/slog"
	"os"

	"github.com/tidehunter/translog/internal/paths"
)

// Data target names within a deployment's data root.
const (
	legacyLogName = "transformation_log.md"
	dailyDirName  = "daily-logs"
	masterLogName = "master-log.json"
)

// Locations overrides the on-disk data locations. Empty fields fall
// back to candidate-list resolution.
type Locations struct {
	LegacyLog string
	DailyDir  string
	MasterLog string
}

// Store is the single access point to log data on disk. Paths are
// resolved once at construction; records are re-read from disk on
// every Load so that out-of-band edits show up without a restart.
type Store struct {
	logger     *slog.Logger
	legacyPath string
	dailyDir   string
	masterPath string
}

// New builds a Store, resolving each data location through the
// candidate list unless explicitly overridden.
func New(logger *slog.Logger, resolver *paths.Resolver, functionRoot string, loc Locations) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger:     logger.With("component", "logstore"),
		legacyPath: loc.LegacyLog,
		dailyDir:   loc.DailyDir,
		masterPath: loc.MasterLog,
	}
	if s.legacyPath == "" {
		s.legacyPath = resolver.Locate(paths.Candidates(functionRoot, legacyLogName))
	}
	if s.dailyDir == "" {
		s.dailyDir = resolver.Locate(paths.Candidates(functionRoot, dailyDirName))
	}
	if s.masterPath == "" {
		s.masterPath = resolver.Locate(paths.Candidates(functionRoot, masterLogName))
	}
	s.logger.Debug("data locations resolved",
		"legacy_log", s.legacyPath,
		"daily_dir", s.dailyDir,
		"master_log", s.masterPath)
	return s
}

// DailyDir returns the resolved per-day record directory.
func (s *Store) DailyDir() string {
	return s.dailyDir
}

// Load reads everything from disk and returns a normalized snapshot.
// The structured store is preferred; the legacy markdown log is the
// fallback. Load never fails: when neither source is usable the
// snapshot is empty but well formed.
func (s *Store) Load() *Snapshot {
	structured := exists(s.dailyDir) || exists(s.masterPath)
	if structured {
		snap, err := loadStructured(s.logger, s.dailyDir, s.masterPath)
		if err != nil {
			s.logger.Warn("structured load incomplete", "error", err)
		}
		// Any populated section counts: a master record carrying only
		// goal or targets is still the authoritative source.
		if len(snap.Days) > 0 || len(snap.Baseline) > 0 ||
			len(snap.Targets) > 0 || snap.Goal != (GoalInfo{}) {
			return snap
		}
	}

	if data, err := os.ReadFile(s.legacyPath); err == nil {
		return ParseLegacy(string(data))
	} else if !structured {
		s.logger.Warn("no log data found",
			"legacy_log", s.legacyPath,
			"daily_dir", s.dailyDir)
	}
	return emptySnapshot()
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
