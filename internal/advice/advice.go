// Package advice produces a daily coaching note from the log. The
// note comes from the model when it is reachable; otherwise a static
// protocol reminder stands in, because the dashboard shows this panel
// unconditionally and an error string coaches nobody.
package advice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidehunter/translog/internal/llm"
	"github.com/tidehunter/translog/internal/logstore"
	"github.com/tidehunter/translog/internal/metrics"
)

// fallbackAdvice is shown when no model can be reached.
const fallbackAdvice = "The coaching model is not reachable right now. Protocol reminders:\n\n" +
	"- Keep protein at 350-420g daily\n" +
	"- Hold carbs under 50g\n" +
	"- Get 1.0-1.5kg seafood\n" +
	"- Take every scheduled supplement\n" +
	"- Train 3-5x per week\n\n" +
	"Consistency beats intensity. Keep the streak alive."

// Snapshotter provides the log state the advice is grounded in.
type Snapshotter interface {
	Load() *logstore.Snapshot
}

// Advisor generates the daily note.
type Advisor struct {
	logger     *slog.Logger
	negotiator *llm.Negotiator
	store      Snapshotter
	now        func() time.Time
}

// New builds an Advisor.
func New(logger *slog.Logger, negotiator *llm.Negotiator, store Snapshotter) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{
		logger:     logger.With("component", "advice"),
		negotiator: negotiator,
		store:      store,
		now:        time.Now,
	}
}

// Note is one generated advice payload.
type Note struct {
	Advice    string `json:"advice"`
	Timestamp string `json:"timestamp"`
	Model     string `json:"model,omitempty"`
}

// Daily returns today's coaching note. Model failures degrade to the
// static fallback; only a context cancellation propagates as an error.
func (a *Advisor) Daily(ctx context.Context) (*Note, error) {
	snap := a.store.Load()

	note := &Note{Timestamp: a.now().Format(time.RFC3339)}

	resp, cand, err := a.negotiator.Chat(ctx, llm.Request{
		Messages: []llm.Message{
			{
				Role: "system",
				Content: "You are an expert health and fitness transformation coach " +
					"specializing in visceral fat reduction and body recomposition. " +
					"Be concise, actionable and motivating.",
			},
			{Role: "user", Content: buildAdvicePrompt(snap)},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("advice generation failed, using fallback", "error", err)
		note.Advice = fallbackAdvice
		return note, nil
	}

	note.Advice = resp.Content
	note.Model = cand.Model
	if note.Advice == "" {
		note.Advice = fallbackAdvice
	}
	return note, nil
}

// buildAdvicePrompt summarizes the log for the coaching request.
func buildAdvicePrompt(snap *logstore.Snapshot) string {
	var b strings.Builder

	b.WriteString("Analyze this transformation log and give personalized advice for today.\n\n")

	if snap.Goal.Goal != "" {
		fmt.Fprintf(&b, "GOAL: %s\n\n", snap.Goal.Goal)
	}

	if len(snap.Baseline) > 0 {
		b.WriteString("BASELINE:\n")
		for _, key := range []string{"body_fat", "android_fat", "weight", "alt", "fasting_glucose", "triglycerides"} {
			v, ok := snap.Baseline[key]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s: %g", key, v)
			if t, ok := snap.Targets[key]; ok {
				if t.IsRange {
					fmt.Fprintf(&b, " (target %g-%g)", t.Min, t.Max)
				} else {
					fmt.Fprintf(&b, " (target <%g)", t.Value)
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	recent := snap.Recent(metrics.ContextWindow)
	if len(recent) == 0 {
		b.WriteString("RECENT DAYS: no data yet\n")
	} else {
		b.WriteString("RECENT DAYS:\n")
		for i := range recent {
			d := &recent[i]
			fmt.Fprintf(&b, "Day %d (%s): protein %s, carbs %s, seafood %s\n",
				d.Day, d.Date,
				grams(d.Protein), grams(d.Carbs), kilos(d.SeafoodKg))
		}
	}

	b.WriteString("\nProvide specific, actionable advice for today: what is working, " +
		"what needs attention, concrete actions, and motivation based on progress. " +
		"Keep it concise.")
	return b.String()
}

func grams(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%gg", *v)
}

func kilos(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%gkg", *v)
}
