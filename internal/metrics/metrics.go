// Package metrics derives dashboard statistics from log snapshots.
// All computations are missing-aware: a day without a value for some
// field contributes to neither the numerator nor the denominator of
// that field's average.
package metrics

import (
	"github.com/tidehunter/translog/internal/logstore"
)

// Averaging windows. The dashboard shows a weekly trend; the assistant
// gets a tighter window so its context reflects the current few days.
const (
	StatsWindow   = 7
	ContextWindow = 3
)

// Averages holds per-field means over a recent window. A field no day
// in the window reported averages to zero.
type Averages struct {
	Protein      float64 `json:"avg_protein"`
	Carbs        float64 `json:"avg_carbs"`
	Fat          float64 `json:"avg_fat"`
	Kcal         float64 `json:"avg_kcal"`
	SeafoodKg    float64 `json:"avg_seafood"`
	FastedWeight float64 `json:"avg_weight"`
	Days         int     `json:"days_in_window"`
}

// WindowAverages computes missing-aware means over the last n days.
func WindowAverages(days []logstore.DayRecord, n int) Averages {
	window := days
	if len(window) > n {
		window = window[len(window)-n:]
	}

	avg := Averages{Days: len(window)}
	avg.Protein = meanOf(window, func(d *logstore.DayRecord) *float64 { return d.Protein })
	avg.Carbs = meanOf(window, func(d *logstore.DayRecord) *float64 { return d.Carbs })
	avg.Fat = meanOf(window, func(d *logstore.DayRecord) *float64 { return d.Fat })
	avg.Kcal = meanOf(window, func(d *logstore.DayRecord) *float64 { return d.Kcal })
	avg.SeafoodKg = meanOf(window, func(d *logstore.DayRecord) *float64 { return d.SeafoodKg })
	avg.FastedWeight = meanOf(window, func(d *logstore.DayRecord) *float64 { return d.FastedWeight })
	return avg
}

// meanOf averages the selected field over the days that report it.
func meanOf(days []logstore.DayRecord, field func(*logstore.DayRecord) *float64) float64 {
	var sum float64
	var count int
	for i := range days {
		if v := field(&days[i]); v != nil {
			sum += *v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// TotalSeafood sums seafood intake in kilograms across the whole log.
func TotalSeafood(days []logstore.DayRecord) float64 {
	var total float64
	for i := range days {
		if days[i].SeafoodKg != nil {
			total += *days[i].SeafoodKg
		}
	}
	return total
}

// Progress is the remaining distance from a baseline value to a target,
// clamped at zero once the target is met or passed. For range targets
// the upper bound is the finish line.
func Progress(baseline float64, target logstore.TargetValue) float64 {
	bound := target.Value
	if target.IsRange {
		bound = target.Max
	}
	if remaining := baseline - bound; remaining > 0 {
		return remaining
	}
	return 0
}

// ProgressSummary applies Progress to every marker that has both a
// baseline reading and a target.
func ProgressSummary(baseline logstore.Baseline, targets logstore.Targets) map[string]float64 {
	out := make(map[string]float64)
	for name, target := range targets {
		if base, ok := baseline[name]; ok {
			out[name] = Progress(base, target)
		}
	}
	return out
}

// SessionCount counts days with any training entry.
func SessionCount(days []logstore.DayRecord) int {
	var n int
	for i := range days {
		if days[i].Training != nil {
			n++
		}
	}
	return n
}

// ExerciseOccurrence is one appearance of an exercise on a given day,
// used to plot progression over time.
type ExerciseOccurrence struct {
	Day           int      `json:"day"`
	Date          string   `json:"date"`
	Session       string   `json:"session,omitempty"`
	Sets          int      `json:"sets"`
	Reps          []int    `json:"reps,omitempty"`
	ResistanceLbs *float64 `json:"weight_lbs,omitempty"`
}

// ExerciseGroups collects structured workout entries keyed by exact
// exercise name, each group ordered chronologically. Names are not
// canonicalized; "Overhead Press" and "overhead press" chart as two
// movements, which keeps grouping predictable for the author.
func ExerciseGroups(days []logstore.DayRecord) map[string][]ExerciseOccurrence {
	groups := make(map[string][]ExerciseOccurrence)
	for i := range days {
		d := &days[i]
		if !d.Training.IsStructured() {
			continue
		}
		for j := range d.Training.Workout {
			ex := &d.Training.Workout[j]
			if ex.Name == "" {
				continue
			}
			occ := ExerciseOccurrence{
				Day:     d.Day,
				Date:    d.Date,
				Session: d.Training.Session,
				Sets:    len(ex.Sets),
			}
			for _, set := range ex.Sets {
				if set.Reps != nil {
					occ.Reps = append(occ.Reps, *set.Reps)
				}
			}
			if lbs, ok := ex.ResistanceLbs(); ok {
				occ.ResistanceLbs = &lbs
			}
			groups[ex.Name] = append(groups[ex.Name], occ)
		}
	}
	return groups
}
