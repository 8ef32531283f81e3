package tools

import (
	"context"
	"fmt"

	"github.com/tidehunter/translog/internal/logstore"
)

func (r *Registry) addDayEntryTool() Tool {
	return Tool{
		Name: "add_day_entry",
		Description: "Record a new day in the transformation log. Use when the " +
			"user reports what they ate, trained or weighed today or on a " +
			"specific date. Omit any value the user did not mention.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "Entry date, e.g. 2026-01-10 or Jan 10, 2026. Defaults to today.",
				},
				"fasted_weight": map[string]any{"type": "number", "description": "Morning fasted weight in kg"},
				"waist":         map[string]any{"type": "number", "description": "Waist circumference in cm"},
				"protein":       map[string]any{"type": "number", "description": "Protein in grams"},
				"carbs":         map[string]any{"type": "number", "description": "Carbohydrates in grams"},
				"fat":           map[string]any{"type": "number", "description": "Fat in grams"},
				"kcal":          map[string]any{"type": "number", "description": "Total calories"},
				"seafood_kg":    map[string]any{"type": "number", "description": "Seafood eaten in kilograms"},
				"training":      map[string]any{"type": "string", "description": "Training done, free text"},
				"feeling":       map[string]any{"type": "string", "description": "How the user felt"},
				"notes":         map[string]any{"type": "string", "description": "Anything else worth keeping"},
			},
			"required": []string{},
		},
		Handler: r.handleAddDayEntry,
	}
}

func (r *Registry) handleAddDayEntry(ctx context.Context, args map[string]any) string {
	date := argString(args, "date")
	if date == "" {
		date = r.now().Format("2006-01-02")
	}
	parsed, err := logstore.ParseDate(date)
	if err != nil {
		// An unrecognized date is logged for today; the entry is never
		// rejected over formatting.
		r.logger.Warn("unrecognized entry date, using today", "date", date)
		parsed = r.now()
	}
	iso := parsed.Format("2006-01-02")

	rec := &logstore.DayRecord{
		Date:         iso,
		FastedWeight: argFloat(args, "fasted_weight"),
		Waist:        argFloat(args, "waist"),
		Protein:      argFloat(args, "protein"),
		Carbs:        argFloat(args, "carbs"),
		Fat:          argFloat(args, "fat"),
		Kcal:         argFloat(args, "kcal"),
		SeafoodKg:    argFloat(args, "seafood_kg"),
		Feeling:      logstore.FlexString(argString(args, "feeling")),
		Notes:        argString(args, "notes"),
	}
	if t := argString(args, "training"); t != "" {
		rec.Training = &logstore.Training{Text: t}
	}
	// Derive calories only when the full macro set is present; a
	// partial derivation would be indistinguishable from a logged one.
	if rec.Kcal == nil && rec.Protein != nil && rec.Carbs != nil && rec.Fat != nil {
		kcal := 4*(*rec.Protein) + 4*(*rec.Carbs) + 9*(*rec.Fat)
		rec.Kcal = &kcal
	}

	if r.readOnly {
		// The deployed filesystem cannot be written. Hand the record
		// back so the user can commit it out of band.
		return mustJSON(map[string]any{
			"success": true,
			"saved":   false,
			"record":  rec,
			"instructions": fmt.Sprintf(
				"The deployment filesystem is read-only. Save this record as daily-logs/%s.json in the repository and redeploy to persist it.",
				iso),
		})
	}

	path, err := r.store.WriteDay(rec)
	if err != nil {
		return failure(fmt.Sprintf("could not save entry: %v", err))
	}
	return mustJSON(map[string]any{
		"success": true,
		"saved":   true,
		"date":    iso,
		"path":    path,
	})
}
