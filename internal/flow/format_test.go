package flow

import (
	"strings"
	"testing"
	"time"

	"gymbot/internal/models"

	"github.com/shopspring/decimal"
)

func TestHistoryTextLatestDayOnly(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 4, day, 19, 0, 0, 0, time.UTC) }
	w := decimal.RequireFromString

	history := []models.HistoryEntry{
		{Date: d(28), Set: 1, Weight: w("60"), Reps: 10},
		{Date: d(28), Set: 2, Weight: w("62.5"), Reps: 8},
		{Date: d(21), Set: 1, Weight: w("55"), Reps: 12},
	}

	got := historyText("Bench press", history)

	if !strings.Contains(got, "Your last training for Bench press (28 April 2024)") {
		t.Errorf("header missing: %q", got)
	}
	if !strings.Contains(got, "62.5kg") {
		t.Errorf("second set missing: %q", got)
	}
	if strings.Contains(got, "55kg") {
		t.Errorf("older day leaked into the table: %q", got)
	}
	if !strings.HasPrefix(strings.SplitN(got, "\n\n", 2)[1], "<pre>") {
		t.Errorf("table should be preformatted: %q", got)
	}
}

func TestHistoryTextEmpty(t *testing.T) {
	got := historyText("Curl <EZ>", nil)
	want := "📝 You haven't done Curl &lt;EZ&gt; before.\n\n"
	if got != want {
		t.Errorf("historyText = %q, want %q", got, want)
	}
}

func TestSummaryEscapesNames(t *testing.T) {
	e := models.TrainingEntry{
		Date:     time.Date(2024, 5, 1, 18, 30, 5, 0, time.UTC),
		Muscle:   "Arms & Co",
		Exercise: "<Curl>",
		Set:      2,
		Weight:   decimal.RequireFromString("12.5"),
		Reps:     10,
	}

	got := summaryText(e)

	for _, want := range []string{"Arms &amp; Co", "&lt;Curl&gt;", "12.5kg", "01-05-2024 18:30:05"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<Curl>") {
		t.Error("raw markup in summary")
	}
}

func TestPRText(t *testing.T) {
	if got := prText(nil); got != "" {
		t.Errorf("prText(nil) = %q", got)
	}
	pr := &models.PersonalRecord{
		Weight: decimal.RequireFromString("100"),
		Reps:   5,
		Date:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	want := "🥇 Your PR: 100kg for 5 reps (02 March 2024)\n\n"
	if got := prText(pr); got != want {
		t.Errorf("prText = %q, want %q", got, want)
	}
}

func TestRecordLabelDeletedExercise(t *testing.T) {
	got := recordLabel(models.Training{Set: 1, Weight: decimal.RequireFromString("40"), Reps: 8})
	if got != "deleted exercise · set 1 · 40kg × 8" {
		t.Errorf("recordLabel = %q", got)
	}
}
