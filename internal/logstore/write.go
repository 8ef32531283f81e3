package logstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteDay persists one day record as <date>.json in the per-day
// directory, creating the directory if needed, and returns the path
// written. The filename is always the ISO form of the record's date so
// that lexical directory order stays chronological regardless of how
// the date was spelled on input.
func (s *Store) WriteDay(rec *DayRecord) (string, error) {
	t, err := ParseDate(rec.Date)
	if err != nil {
		return "", fmt.Errorf("write day record: %w", err)
	}

	if err := os.MkdirAll(s.dailyDir, 0o755); err != nil {
		return "", fmt.Errorf("create daily dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode day record: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(s.dailyDir, t.Format("2006-01-02")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write day record: %w", err)
	}

	s.logger.Info("day record written", "path", path, "date", rec.Date)
	return path, nil
}
