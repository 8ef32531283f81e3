package tools

import (
	"context"

	"github.com/tidehunter/translog/internal/metrics"
)

func (r *Registry) currentStatsTool() Tool {
	return Tool{
		Name: "get_current_stats",
		Description: "Read the current transformation statistics: logging " +
			"streak, baseline markers, recent nutrition averages, total " +
			"seafood eaten and the most recent logged days. Use before " +
			"answering questions about progress.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleCurrentStats,
	}
}

func (r *Registry) handleCurrentStats(ctx context.Context, args map[string]any) string {
	snap := r.store.Load()
	avg := metrics.WindowAverages(snap.Days, metrics.StatsWindow)

	result := map[string]any{
		"success":          true,
		"streak_days":      snap.Streak(),
		"days_logged":      len(snap.Days),
		"baseline":         snap.Baseline,
		"total_seafood_kg": metrics.TotalSeafood(snap.Days),
		"sessions":         metrics.SessionCount(snap.Days),
		"averages_7d": map[string]any{
			"protein_g":  avg.Protein,
			"carbs_g":    avg.Carbs,
			"fat_g":      avg.Fat,
			"kcal":       avg.Kcal,
			"seafood_kg": avg.SeafoodKg,
			"weight_kg":  avg.FastedWeight,
		},
		"recent_days": snap.Recent(metrics.ContextWindow),
		"goal":        snap.Goal,
	}
	if len(snap.Days) > 0 {
		result["latest_day"] = snap.Days[len(snap.Days)-1]
	}
	return mustJSON(result)
}
