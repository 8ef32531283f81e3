package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidehunter/translog/internal/logstore"
	"github.com/tidehunter/translog/internal/metrics"
)

// buildSystemPrompt grounds the assistant in the current state of the
// log: program goal, baseline, targets and the last few days. The
// window stays small so recent days dominate the model's attention.
func buildSystemPrompt(snap *logstore.Snapshot) string {
	var b strings.Builder

	b.WriteString("You are a personal health-transformation coach. ")
	b.WriteString("You have the user's transformation log and tools to read and update it. ")
	b.WriteString("Be direct and specific; cite numbers from the log when relevant.\n\n")

	if snap.Goal.Goal != "" {
		fmt.Fprintf(&b, "Program goal: %s", snap.Goal.Goal)
		if snap.Goal.Started != "" {
			fmt.Fprintf(&b, " (started %s)", snap.Goal.Started)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Days logged: %d\n", snap.Streak())

	if len(snap.Baseline) > 0 {
		b.WriteString("\nBaseline markers:\n")
		for _, key := range orderedKeys(snap.Baseline) {
			fmt.Fprintf(&b, "  %s: %g\n", key, snap.Baseline[key])
		}
	}

	if len(snap.Targets) > 0 {
		b.WriteString("\nTargets:\n")
		names := make([]string, 0, len(snap.Targets))
		for name := range snap.Targets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			tv := snap.Targets[name]
			if tv.IsRange {
				fmt.Fprintf(&b, "  %s: %g-%g\n", name, tv.Min, tv.Max)
			} else {
				fmt.Fprintf(&b, "  %s: under %g\n", name, tv.Value)
			}
		}
	}

	recent := snap.Recent(metrics.ContextWindow)
	if len(recent) > 0 {
		b.WriteString("\nMost recent days:\n")
		for i := range recent {
			b.WriteString("  ")
			b.WriteString(describeDay(&recent[i]))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// describeDay renders one record as a compact line, naming only the
// fields that were actually logged.
func describeDay(d *logstore.DayRecord) string {
	parts := []string{fmt.Sprintf("Day %d (%s):", d.Day, d.Date)}
	addNum := func(label string, v *float64, unit string) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s %g%s", label, *v, unit))
		}
	}
	addNum("weight", d.FastedWeight, "kg")
	addNum("protein", d.Protein, "g")
	addNum("carbs", d.Carbs, "g")
	addNum("fat", d.Fat, "g")
	addNum("kcal", d.Kcal, "")
	addNum("seafood", d.SeafoodKg, "kg")
	if d.Training != nil {
		if d.Training.Text != "" {
			parts = append(parts, "training: "+d.Training.Text)
		} else if d.Training.Session != "" {
			parts = append(parts, "training: "+d.Training.Session)
		}
	}
	if d.Feeling != "" {
		parts = append(parts, "feeling: "+string(d.Feeling))
	}
	return strings.Join(parts, " ")
}

func orderedKeys(m logstore.Baseline) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
