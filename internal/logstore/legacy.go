package logstore

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// The legacy log is a hand-authored markdown journal. Day entries start
// with a "### Day N" header; everything until the next header belongs
// to that day. Field extraction is regex-based and best-effort: a field
// the patterns cannot find is simply absent from the record, never
// zeroed or guessed.
var (
	// Both the en dash and plain hyphen appear between day number and
	// date, depending on which editor authored the entry.
	dayHeaderRe = regexp.MustCompile(`### Day (\d+) [–-] ([A-Za-z]+ \d+, \d{4})`)

	proteinRe = regexp.MustCompile(`Protein\s+(\d+)\s+g`)
	carbsRe   = regexp.MustCompile(`Carbs\s+(\d+)\s+g`)
	fatRe     = regexp.MustCompile(`Fat\s+(\d+)\s+g`)
	kcalRe    = regexp.MustCompile(`(\d+)\s+kcal`)

	// Seafood intake was written either in kilograms ("Seafood: 1.2 kg")
	// or in grams ("Seafood ~800 g"). Grams normalize to kilograms.
	seafoodKgRe = regexp.MustCompile(`Seafood[:\s]+([\d.]+)\s*kg`)
	seafoodGRe  = regexp.MustCompile(`Seafood[:\s]+~?([\d.]+)\s*g`)

	surfingRe = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*hr\s*surfing`)
	gymRe     = regexp.MustCompile(`(?i)\b(gym|press|squat|deadlift|pull-?up)\b`)

	feelingRe = regexp.MustCompile(`(?i)Feeling[:\s]+([^\n]+)`)

	weightTargetRe  = regexp.MustCompile(`Weight\s+\|\s+(\d+)[–-](\d+)\s*kg`)
	bodyFatTargetRe = regexp.MustCompile(`Body Fat %\s+\|\s+≤?(\d+)[–-](\d+)\s*%`)
	androidTargetRe = regexp.MustCompile(`Android Fat\s+\|\s+≤?(\d+)[–-](\d+)\s*%`)
	altTargetRe     = regexp.MustCompile(`ALT\s+\|\s+<(\d+)`)
	glucoseTargetRe = regexp.MustCompile(`Glucose\s+\|\s+<(\d+)`)
	trigTargetRe    = regexp.MustCompile(`Triglycerides\s+\|\s+<(\d+)`)

	goalRe    = regexp.MustCompile(`\*\*Goal:\*\*\s*([^\n]+)`)
	startedRe = regexp.MustCompile(`\*\*Started:\*\*\s*([^\n]+)`)
)

// baselinePatterns map baseline table rows to metric keys. The table
// format is "| Marker | value unit |".
var baselinePatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{"body_fat", regexp.MustCompile(`Body Fat %\s+\|\s+([\d.]+)`)},
	{"android_fat", regexp.MustCompile(`Android Fat\s+\|\s+([\d.]+)`)},
	{"height", regexp.MustCompile(`Height\s+\|\s+([\d.]+)`)},
	{"weight", regexp.MustCompile(`Weight\s+\|\s+([\d.]+)`)},
	{"lean_mass", regexp.MustCompile(`Lean Mass\s+\|\s+([\d.]+)`)},
	{"alt", regexp.MustCompile(`ALT\s+\|\s+([\d.]+)`)},
	{"ast", regexp.MustCompile(`AST\s+\|\s+([\d.]+)`)},
	{"ggt", regexp.MustCompile(`GGT\s+\|\s+([\d.]+)`)},
	{"fasting_glucose", regexp.MustCompile(`Fasting Glucose\s+\|\s+([\d.]+)`)},
	{"triglycerides", regexp.MustCompile(`Triglycerides\s+\|\s+([\d.]+)`)},
	{"hs_crp", regexp.MustCompile(`hs-CRP\s+\|\s+([\d.]+)`)},
	{"vitamin_d", regexp.MustCompile(`Vitamin D\s+\|\s+([\d.]+)`)},
	{"ferritin", regexp.MustCompile(`Ferritin\s+\|\s+([\d.]+)`)},
}

// ParseLegacy extracts a full snapshot from the legacy markdown log.
// It never fails: unmatched sections leave their fields empty.
func ParseLegacy(content string) *Snapshot {
	snap := emptySnapshot()
	snap.Baseline = parseBaseline(content)
	snap.Targets = parseTargets(content)
	snap.Goal = parseGoal(content)
	snap.Days = parseLegacyDays(content)
	normalizeDays(snap.Days)
	return snap
}

func parseBaseline(content string) Baseline {
	b := Baseline{}
	for _, p := range baselinePatterns {
		if m := p.re.FindStringSubmatch(content); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				b[p.key] = v
			}
		}
	}
	return b
}

func parseTargets(content string) Targets {
	t := Targets{}
	rangeTargets := []struct {
		key string
		re  *regexp.Regexp
	}{
		{"weight", weightTargetRe},
		{"body_fat", bodyFatTargetRe},
		{"android_fat", androidTargetRe},
	}
	for _, rt := range rangeTargets {
		if m := rt.re.FindStringSubmatch(content); m != nil {
			lo, err1 := strconv.ParseFloat(m[1], 64)
			hi, err2 := strconv.ParseFloat(m[2], 64)
			if err1 == nil && err2 == nil {
				t[rt.key] = TargetValue{Min: lo, Max: hi, IsRange: true}
			}
		}
	}
	boundTargets := []struct {
		key string
		re  *regexp.Regexp
	}{
		{"alt", altTargetRe},
		{"fasting_glucose", glucoseTargetRe},
		{"triglycerides", trigTargetRe},
	}
	for _, bt := range boundTargets {
		if m := bt.re.FindStringSubmatch(content); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				t[bt.key] = TargetValue{Value: v}
			}
		}
	}
	return t
}

func parseGoal(content string) GoalInfo {
	var g GoalInfo
	if m := goalRe.FindStringSubmatch(content); m != nil {
		g.Goal = strings.TrimSpace(m[1])
	}
	if m := startedRe.FindStringSubmatch(content); m != nil {
		g.Started = strings.TrimSpace(m[1])
	}
	return g
}

func parseLegacyDays(content string) []DayRecord {
	headers := dayHeaderRe.FindAllStringSubmatchIndex(content, -1)
	days := make([]DayRecord, 0, len(headers))
	for i, h := range headers {
		end := len(content)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		section := content[h[0]:end]

		dayNum, _ := strconv.Atoi(content[h[2]:h[3]])
		rec := DayRecord{
			Day:  dayNum,
			Date: content[h[4]:h[5]],
		}
		parseDaySection(section, &rec)
		days = append(days, rec)
	}
	return days
}

// parseDaySection fills rec from one day's block of markdown text.
func parseDaySection(section string, rec *DayRecord) {
	rec.Protein = matchFloat(proteinRe, section)
	rec.Carbs = matchFloat(carbsRe, section)
	rec.Fat = matchFloat(fatRe, section)
	rec.Kcal = matchFloat(kcalRe, section)

	if v := matchFloat(seafoodKgRe, section); v != nil {
		rec.SeafoodKg = v
	} else if g := matchFloat(seafoodGRe, section); g != nil {
		kg := *g / 1000
		rec.SeafoodKg = &kg
	}

	var activities []string
	if m := surfingRe.FindStringSubmatch(section); m != nil {
		activities = append(activities, fmt.Sprintf("Surfing: %shr", m[1]))
	}
	if gymRe.MatchString(section) {
		activities = append(activities, "Gym")
	}
	if len(activities) > 0 {
		rec.Training = &Training{Text: strings.Join(activities, ", ")}
	}

	if m := feelingRe.FindStringSubmatch(section); m != nil {
		rec.Feeling = FlexString(strings.TrimSpace(m[1]))
	}
}

func matchFloat(re *regexp.Regexp, s string) *float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// normalizeDays sorts records chronologically and renumbers them 1..N.
// Authored day numbers drift when entries are inserted out of order;
// the date is authoritative. The sort is stable so records whose dates
// cannot be parsed keep their relative position at the front.
func normalizeDays(days []DayRecord) {
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].ParsedDate().Before(days[j].ParsedDate())
	})
	for i := range days {
		days[i].Day = i + 1
	}
}
