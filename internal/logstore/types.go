// Package logstore reads and writes the transformation log. Two on-disk
// representations exist side by side, a legacy free-text markdown
// document and a directory of per-day JSON records, and both are
// normalized into the same record shapes so that nothing downstream
// ever branches on the source format.
package logstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Weight unit conversion factors. Resistance values arrive in either
// unit; consumers needing one unit convert explicitly at the boundary.
const (
	LbsPerKg = 2.20462
	KgPerLb  = 0.453592
)

// DayRecord is one calendar day's normalized entry. Optional numeric
// fields are pointers: a missing value is not a zero value, and the
// metrics layer must be able to tell them apart.
//
// Date is the only stable identity. Day is positional: it is
// reassigned from date-sorted order on every load and never trusted
// from disk.
type DayRecord struct {
	Day          int            `json:"day"`
	Date         string         `json:"date"`
	FastedWeight *float64       `json:"fastedWeight,omitempty"`
	Waist        *float64       `json:"waist,omitempty"`
	Protein      *float64       `json:"protein"`
	Carbs        *float64       `json:"carbs"`
	Fat          *float64       `json:"fat"`
	Kcal         *float64       `json:"kcal"`
	SeafoodKg    *float64       `json:"seafoodKg"`
	Training     *Training      `json:"training,omitempty"`
	Supplements  map[string]any `json:"supplements,omitempty"`
	Feeling      FlexString     `json:"feeling,omitempty"`
	Notes        string         `json:"notes,omitempty"`
}

// dayRecordAlias exists so UnmarshalJSON can decode without recursing.
type dayRecordAlias DayRecord

// dayRecordWire tolerates the field spellings seen across log
// generations: camelCase and snake_case keys, and macro totals nested
// under a "total" object.
type dayRecordWire struct {
	dayRecordAlias
	FastedWeightSnake *float64 `json:"fasted_weight"`
	SeafoodSnake      *float64 `json:"seafood_kg"`
	Total             *struct {
		Protein   *float64 `json:"protein"`
		Carbs     *float64 `json:"carbs"`
		Fat       *float64 `json:"fat"`
		Kcal      *float64 `json:"kcal"`
		SeafoodKg *float64 `json:"seafood_kg"`
	} `json:"total"`
}

// UnmarshalJSON normalizes the historical field spellings into the
// canonical shape. Explicit top-level values win over nested totals.
func (d *DayRecord) UnmarshalJSON(b []byte) error {
	var w dayRecordWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	rec := DayRecord(w.dayRecordAlias)
	if rec.FastedWeight == nil {
		rec.FastedWeight = w.FastedWeightSnake
	}
	if rec.SeafoodKg == nil {
		rec.SeafoodKg = w.SeafoodSnake
	}
	if w.Total != nil {
		if rec.Protein == nil {
			rec.Protein = w.Total.Protein
		}
		if rec.Carbs == nil {
			rec.Carbs = w.Total.Carbs
		}
		if rec.Fat == nil {
			rec.Fat = w.Total.Fat
		}
		if rec.Kcal == nil {
			rec.Kcal = w.Total.Kcal
		}
		if rec.SeafoodKg == nil {
			rec.SeafoodKg = w.Total.SeafoodKg
		}
	}
	*d = rec
	return nil
}

// dateFormats are the accepted date spellings, tried in order.
var dateFormats = []string{
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02/01/2006",
}

// ParseDate parses a date in any accepted format.
func ParseDate(s string) (time.Time, error) {
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParsedDate returns the record's date as a time.Time, or the zero time
// if the date cannot be parsed. Records with unparseable dates sort
// first and keep their relative order.
func (d *DayRecord) ParsedDate() time.Time {
	t, err := ParseDate(d.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Training is either a free-text description or a structured session.
// Exactly one representation is populated.
type Training struct {
	Text    string
	Session string
	Workout []Exercise
}

// trainingWire is the structured JSON shape.
type trainingWire struct {
	Session string     `json:"session"`
	Workout []Exercise `json:"workout"`
}

// UnmarshalJSON accepts both a JSON string and the structured object.
func (t *Training) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &t.Text)
	}
	var w trainingWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	t.Session = w.Session
	t.Workout = w.Workout
	return nil
}

// MarshalJSON writes back whichever representation is populated.
func (t Training) MarshalJSON() ([]byte, error) {
	if t.Text != "" {
		return json.Marshal(t.Text)
	}
	return json.Marshal(trainingWire{Session: t.Session, Workout: t.Workout})
}

// IsStructured reports whether the training entry carries a workout.
func (t *Training) IsStructured() bool {
	return t != nil && t.Text == ""
}

// Exercise is one movement within a structured session. Added
// resistance may be recorded per side or as a total, in kilograms or
// pounds; no field is guaranteed present.
type Exercise struct {
	Name              string     `json:"exercise"`
	WeightEachSideKg  *float64   `json:"weight_each_side_kg,omitempty"`
	WeightEachSideLbs *float64   `json:"weight_each_side_lbs,omitempty"`
	TotalAddedKg      *float64   `json:"total_added_weight_kg,omitempty"`
	TotalAddedLbs     *float64   `json:"total_added_weight_lbs,omitempty"`
	Sets              SetList    `json:"sets,omitempty"`
	Notes             FlexString `json:"notes,omitempty"`
}

// ResistanceLbs returns the exercise's added resistance in pounds,
// preferring per-side over total and explicit pounds over converted
// kilograms. The second return is false when no resistance is recorded.
func (e *Exercise) ResistanceLbs() (float64, bool) {
	switch {
	case e.WeightEachSideLbs != nil:
		return *e.WeightEachSideLbs, true
	case e.WeightEachSideKg != nil:
		return *e.WeightEachSideKg * LbsPerKg, true
	case e.TotalAddedLbs != nil:
		return *e.TotalAddedLbs, true
	case e.TotalAddedKg != nil:
		return *e.TotalAddedKg * LbsPerKg, true
	}
	return 0, false
}

// ExerciseSet is one set within an exercise.
type ExerciseSet struct {
	Number            int        `json:"set,omitempty"`
	Reps              *int       `json:"reps,omitempty"`
	Distance          FlexString `json:"distance,omitempty"`
	WeightEachSideKg  *float64   `json:"weight_each_side_kg,omitempty"`
	WeightEachSideLbs *float64   `json:"weight_each_side_lbs,omitempty"`
	TotalAddedKg      *float64   `json:"total_added_weight_kg,omitempty"`
	TotalAddedLbs     *float64   `json:"total_added_weight_lbs,omitempty"`
}

// SetList tolerates "sets" expressed either as a plain count (yielding
// placeholder entries with unknown reps) or as a full per-set array.
type SetList []ExerciseSet

// UnmarshalJSON handles both encodings.
func (s *SetList) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '[' {
		var sets []ExerciseSet
		if err := json.Unmarshal(b, &sets); err != nil {
			return err
		}
		*s = sets
		return nil
	}
	var count int
	if err := json.Unmarshal(b, &count); err != nil {
		return fmt.Errorf("sets must be a count or an array: %w", err)
	}
	sets := make([]ExerciseSet, 0, count)
	for i := 0; i < count; i++ {
		sets = append(sets, ExerciseSet{Number: i + 1})
	}
	*s = sets
	return nil
}

// FlexString is a string that also accepts JSON numbers on decode. The
// "feeling" field in particular was authored sometimes as a score and
// sometimes as prose.
type FlexString string

// UnmarshalJSON accepts a string, a number, or null.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// Baseline is the one-time anthropometric and blood-marker snapshot,
// keyed by metric name (body_fat, android_fat, weight, alt, ...).
type Baseline map[string]float64

/// TargetValue is a goal threshold: either a single bound or a min/max
// range, keyed by the same metric names as Baseline.
type TargetValue struct {
	Value    float64
	Min, Max float64
	IsRange  bool
}

// MarshalJSON writes a bare number for single bounds and a {min,max}
// object for ranges, matching what the dashboard consumes.
func (t TargetValue) MarshalJSON() ([]byte, error) {
	if t.IsRange {
		return json.Marshal(map[string]float64{"min": t.Min, "max": t.Max})
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON accepts both encodings.
func (t *TargetValue) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '{' {
		var r struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		}
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		t.Min, t.Max, t.IsRange = r.Min, r.Max, true
		return nil
	}
	t.IsRange = false
	return json.Unmarshal(b, &t.Value)
}

// Targets maps metric names to their goal thresholds.
type Targets map[string]TargetValue

// GoalInfo is the free-text program description. Informational only.
type GoalInfo struct {
	Goal    string `json:"goal"`
	Started string `json:"started"`
}

// Snapshot is the product of one load: everything the dashboard and
// the assistant need, rebuilt fresh from storage on every request.
type Snapshot struct {
	Baseline Baseline
	Targets  Targets
	Goal     GoalInfo
	Days     []DayRecord
}

// Streak is the count of logged days.
func (s *Snapshot) Streak() int {
	return len(s.Days)
}

// Recent returns the most recent n day records (fewer if the log is
// shorter), oldest first.
func (s *Snapshot) Recent(n int) []DayRecord {
	if len(s.Days) <= n {
		return s.Days
	}
	return s.Days[len(s.Days)-n:]
}

// emptySnapshot returns an empty-but-well-formed snapshot. Resolution
// failures degrade to this rather than erroring.
func emptySnapshot() *Snapshot {
	return &Snapshot{
		Baseline: Baseline{},
		Targets:  Targets{},
		Days:     nil,
	}
}
