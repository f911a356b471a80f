package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gymbot/internal/models"
	"gymbot/internal/repository"
	"gymbot/internal/session"

	"github.com/shopspring/decimal"
)

func (m *Machine) onMenu(t *turn) Result {
	*t.s = session.Session{}
	t.drop = true
	return Result{
		Replies: []Reply{{
			Text: "Select the action:",
			Choices: buttons(
				btn("Record training", Start{}),
				btn("Edit trainings", EditMenu{}),
			),
			PerRow: 2,
		}},
		Notice: "Starting from scratch",
	}
}

func (m *Machine) onEditMenu(t *turn) Result {
	*t.s = session.Session{}
	t.drop = true
	return single(Reply{
		Text:    "Edit trainings",
		Choices: buttons(btn("Edit today's training", EditToday{})),
		PerRow:  1,
		Footer:  buttons(btn("Close", Menu{})),
	})
}

func (m *Machine) todayRecords(t *turn) ([]models.Training, error) {
	var records []models.Training
	err := m.do(t, func(ctx context.Context) (err error) {
		records, err = m.trainings.ListDay(ctx, t.userID, m.today())
		return err
	})
	return records, err
}

func (m *Machine) onEditToday(t *turn) Result {
	*t.s = session.Session{}

	records, err := m.todayRecords(t)
	if err != nil {
		return m.failure(t, "list today's records", err)
	}

	back := buttons(btn("⬅️ Back", EditMenu{}))
	if len(records) == 0 {
		return single(Reply{Text: "You haven't recorded anything today.", Footer: back})
	}

	choices := make([]Button, 0, len(records))
	for _, r := range records {
		choices = append(choices, btn(recordLabel(r), EditRecord{ID: r.ID}))
	}
	return single(Reply{
		Text:    "Select a record to edit:",
		Choices: buttons(choices...),
		PerRow:  1,
		Footer:  back,
	})
}

// onEditRecord запись ищется среди сегодняшних записей пользователя,
// чужие id сюда не попадут
func (m *Machine) onEditRecord(t *turn, a EditRecord) Result {
	records, err := m.todayRecords(t)
	if err != nil {
		return m.failure(t, "list today's records", err)
	}

	for _, r := range records {
		if r.ID != a.ID {
			continue
		}
		*t.s = session.Session{
			RecordID: r.ID,
			Muscle:   r.MuscleName,
			Exercise: r.ExerciseName,
			Set:      r.Set,
		}
		prefix := fmt.Sprintf("Editing %s\n\n", esc(recordLabel(r)))
		return m.editWeightScreen(t, prefix)
	}
	return Result{Notice: "Record not found.", Alert: true}
}

func (m *Machine) editWeightScreen(t *turn, prefix string) Result {
	t.s.State = session.EditingWeight
	t.s.Weight, t.s.Reps = "", 0
	return single(Reply{
		Text:    prefix + "Select the new weight (or type it):",
		HTML:    true,
		Choices: m.weightChoices(),
		PerRow:  7,
		Footer:  buttons(btn("⬅️ Back", EditToday{})),
	})
}

func (m *Machine) editRepsScreen(t *turn, prefix string) Result {
	t.s.State = session.EditingReps
	t.s.Reps = 0
	return single(Reply{
		Text:    fmt.Sprintf("%s%s, set %d | %skg for <b>how many reps</b>?", prefix, esc(t.s.Exercise), t.s.Set, t.s.Weight),
		HTML:    true,
		Choices: m.repsChoices(),
		PerRow:  8,
		Footer:  buttons(btn("⬅️ Back", EditRecord{ID: t.s.RecordID})),
	})
}

func (m *Machine) onEditWeight(t *turn, a WeightChosen) Result {
	w, err := models.ParseWeight(a.Weight)
	if err != nil {
		return m.editWeightScreen(t, validationPrefix(err))
	}
	t.s.Weight = w.String()
	return withNotice(m.editRepsScreen(t, ""), t.s.Weight+"kg")
}

func (m *Machine) onEditReps(t *turn, a RepsChosen) Result {
	if err := models.ValidateReps(a.Reps); err != nil {
		return m.editRepsScreen(t, validationPrefix(err))
	}
	weight, err := decimal.NewFromString(t.s.Weight)
	if err != nil {
		return m.editWeightScreen(t, "")
	}

	id, exercise, set := t.s.RecordID, t.s.Exercise, t.s.Set
	err = m.do(t, func(ctx context.Context) error {
		return m.trainings.Update(ctx, id, t.userID, weight, a.Reps)
	})

	*t.s = session.Session{}
	t.drop = true
	nav := Reply{
		Choices: buttons(btn("Edit another record", EditToday{})),
		PerRow:  1,
		Footer:  buttons(btn("Close", Menu{})),
		HTML:    true,
	}

	switch {
	case errors.Is(err, repository.ErrAccessDenied):
		m.log.Warn("update refused", "user_id", t.userID, "id", id)
		nav.Text = "❌ Could not update this record."
		return single(nav)
	case err != nil:
		return m.failure(t, "update record", err)
	}

	m.log.Info("training updated", "user_id", t.userID, "id", id,
		"weight", weight.String(), "reps", a.Reps)
	nav.Text = fmt.Sprintf("✅ Record updated: %s, set %d, %s × %s", esc(exercise), set, kg(weight), strconv.Itoa(a.Reps))
	return withNotice(single(nav), "Saved")
}
