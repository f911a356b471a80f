package flow

import (
	"fmt"
	"html"
	"strconv"
	"time"

	"gymbot/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

const (
	longDate  = "02 January 2006"
	stampTime = "02-01-2006 15:04:05"
)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderTable рисует моноширинную таблицу для <pre>. Экранирование после
// раскладки, иначе поедет ширина колонок.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers(headers...).
		Rows(rows...)
	return "<pre>" + html.EscapeString(t.String()) + "</pre>"
}

func kg(w decimal.Decimal) string {
	return w.String() + "kg"
}

func esc(s string) string {
	return html.EscapeString(s)
}

// historyText последняя прошлая тренировка упражнения
func historyText(exercise string, history []models.HistoryEntry) string {
	if len(history) == 0 {
		return fmt.Sprintf("📝 You haven't done %s before.\n\n", esc(exercise))
	}

	day := history[0].Date.Format(time.DateOnly)
	var rows [][]string
	for _, h := range history {
		if h.Date.Format(time.DateOnly) != day {
			break
		}
		rows = append(rows, []string{"Set " + strconv.Itoa(h.Set), kg(h.Weight), strconv.Itoa(h.Reps)})
	}

	return fmt.Sprintf("📊 Your last training for %s (%s):\n\n%s\n\n",
		esc(exercise), history[0].Date.Format(longDate),
		renderTable([]string{"Set", "Weight (kg)", "Reps"}, rows))
}

func prText(pr *models.PersonalRecord) string {
	if pr == nil {
		return ""
	}
	return fmt.Sprintf("🥇 Your PR: %s for %d reps (%s)\n\n", kg(pr.Weight), pr.Reps, pr.Date.Format(longDate))
}

// summaryText подтверждение сохранённого подхода
func summaryText(e models.TrainingEntry) string {
	rows := [][]string{
		{"Muscle", e.Muscle},
		{"Exercise", e.Exercise},
		{"Set", strconv.Itoa(e.Set)},
		{"Weight", kg(e.Weight)},
		{"Reps", strconv.Itoa(e.Reps)},
		{"Recorded at", e.Date.Format(stampTime)},
	}
	return renderTable([]string{"Name", "Details"}, rows)
}

func recordLabel(t models.Training) string {
	name := t.ExerciseName
	if name == "" {
		name = "deleted exercise"
	}
	return fmt.Sprintf("%s · set %d · %s × %d", name, t.Set, kg(t.Weight), t.Reps)
}
