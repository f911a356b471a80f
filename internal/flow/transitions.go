package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gymbot/internal/models"
	"gymbot/internal/personalize"
	"gymbot/internal/repository"
	"gymbot/internal/session"

	"github.com/shopspring/decimal"
)

// --- экраны ---

// musclesScreen список мышц; prefix выводится перед приглашением
func (m *Machine) musclesScreen(t *turn, prefix string) Result {
	t.s.ClearSelections()
	t.s.State = session.SelectingMuscle

	var muscles []string
	err := m.do(t, func(ctx context.Context) (err error) {
		muscles, err = m.catalog.ListMuscles(ctx, t.userID)
		return err
	})
	if err != nil {
		return m.failure(t, "list muscles", err)
	}

	text := prefix + "Select a body part"
	if len(muscles) == 0 {
		text = prefix + "There are no body parts yet. Add one!"
	}
	choices := make([]Button, 0, len(muscles))
	for _, name := range muscles {
		choices = append(choices, btn(name, MuscleSelected{Muscle: name}))
	}

	return single(Reply{
		Text:    text,
		HTML:    true,
		Choices: buttons(choices...),
		PerRow:  3,
		Footer:  buttons(btn("➕ Add muscle", AddMuscle{}), btn("⬅️ Back", Menu{})),
	})
}

// exercisesScreen список упражнений выбранной мышцы
func (m *Machine) exercisesScreen(t *turn, showAll bool) Result {
	s := t.s
	s.State = session.SelectingExercise
	s.Exercise, s.Set, s.Weight, s.Reps = "", 0, "", 0

	var list personalize.List
	err := m.do(t, func(ctx context.Context) (err error) {
		list, err = m.exercises.OrderedExercises(ctx, s.Muscle, t.userID, showAll)
		return err
	})
	if err != nil {
		return m.failure(t, "list exercises", err)
	}

	text := "Select the exercise"
	if len(list.Names) == 0 {
		text = fmt.Sprintf("There are no exercises for %s yet. Add one!", esc(s.Muscle))
	}

	var header []Button
	if list.Compact && !showAll {
		header = buttons(btn("📋 Show all", ShowAll{Muscle: s.Muscle}))
	}
	choices := make([]Button, 0, len(list.Names))
	for _, name := range list.Names {
		choices = append(choices, btn(name, ExerciseSelected{Exercise: name}))
	}

	return single(Reply{
		Text:    text,
		HTML:    true,
		Header:  header,
		Choices: buttons(choices...),
		PerRow:  1,
		Footer: buttons(
			btn("➕ Add exercise", AddExercise{}),
			btn("🗑 Delete exercise", DeleteExercise{}),
			btn("⬅️ Back", BackToMuscles{}),
		),
	})
}

// setsScreen история, рекорд и оставшиеся на сегодня подходы
func (m *Machine) setsScreen(t *turn) Result {
	s := t.s
	s.State = session.SelectingSet
	s.Set, s.Weight, s.Reps = 0, "", 0
	today := m.today()

	var text strings.Builder

	var history []models.HistoryEntry
	err := m.do(t, func(ctx context.Context) (err error) {
		history, err = m.trainings.History(ctx, t.userID, s.Muscle, s.Exercise, today)
		return err
	})
	if err != nil {
		m.log.Warn("history unavailable", "user_id", t.userID, "muscle", s.Muscle, "exercise", s.Exercise, "error", err)
	} else {
		text.WriteString(historyText(s.Exercise, history))
	}

	var pr *models.PersonalRecord
	err = m.do(t, func(ctx context.Context) (err error) {
		pr, err = m.trainings.PersonalRecord(ctx, t.userID, s.Muscle, s.Exercise)
		return err
	})
	if err != nil {
		m.log.Warn("personal record unavailable", "user_id", t.userID, "exercise", s.Exercise, "error", err)
	} else {
		text.WriteString(prText(pr))
	}

	var completed []int
	err = m.do(t, func(ctx context.Context) (err error) {
		completed, err = m.trainings.CompletedSets(ctx, t.userID, s.Muscle, s.Exercise, today)
		return err
	})
	if err != nil {
		return m.failure(t, "completed sets", err)
	}

	p := m.presets.Get()
	remaining := p.RemainingSets(completed)
	back := buttons(btn("⬅️ Back", BackToExercises{}))

	if len(remaining) == 0 {
		fmt.Fprintf(&text, "✅ All %d sets of %s are completed today.", len(p.Sets), esc(s.Exercise))
		return single(Reply{
			Text:    text.String(),
			HTML:    true,
			Choices: buttons(btn("✅ All sets completed", BackToMuscles{})),
			PerRow:  1,
			Footer:  back,
		})
	}

	text.WriteString("Select set")
	choices := make([]Button, 0, len(remaining))
	for _, n := range remaining {
		choices = append(choices, btn("Set "+strconv.Itoa(n), SetChosen{Set: n}))
	}
	return single(Reply{
		Text:    text.String(),
		HTML:    true,
		Choices: choices,
		PerRow:  6,
		Footer:  back,
	})
}

func (m *Machine) weightChoices() []Button {
	weights := m.presets.Get().Weights
	choices := make([]Button, 0, len(weights))
	for _, w := range weights {
		choices = append(choices, btn(w, WeightChosen{Weight: w}))
	}
	return buttons(choices...)
}

func (m *Machine) repsChoices() []Button {
	reps := m.presets.Get().Reps
	choices := make([]Button, 0, len(reps))
	for _, r := range reps {
		choices = append(choices, btn(strconv.Itoa(r), RepsChosen{Reps: r}))
	}
	return choices
}

// weightScreen prefix показывается над приглашением (например, ошибка ввода)
func (m *Machine) weightScreen(t *turn, prefix string) Result {
	t.s.State = session.SelectingWeight
	t.s.Weight, t.s.Reps = "", 0
	return single(Reply{
		Text:    fmt.Sprintf("%sEnter weight for set %d (or type it)", prefix, t.s.Set),
		HTML:    true,
		Choices: m.weightChoices(),
		PerRow:  7,
		Footer:  buttons(btn("⬅️ Back", BackToSets{})),
	})
}

func (m *Machine) repsScreen(t *turn, prefix string) Result {
	t.s.State = session.SelectingReps
	t.s.Reps = 0
	return single(Reply{
		Text:    fmt.Sprintf("%sSet %d | %skg for <b>how many reps</b>?", prefix, t.s.Set, t.s.Weight),
		HTML:    true,
		Choices: m.repsChoices(),
		PerRow:  8,
		Footer:  buttons(btn("⬅️ Back", BackToSets{})),
	})
}

func validationPrefix(err error) string {
	var verr models.ValidationError
	if errors.As(err, &verr) {
		return "⚠️ " + esc(verr.Message) + "\n\n"
	}
	return "⚠️ Invalid value.\n\n"
}

// --- основной сценарий ---

func (m *Machine) onMuscleSelected(t *turn, a MuscleSelected) Result {
	t.s.Muscle = a.Muscle
	return withNotice(m.exercisesScreen(t, false), a.Muscle)
}

func (m *Machine) onShowAll(t *turn, a ShowAll) Result {
	// мышца приходит в кнопке, сессия могла потеряться
	t.s.Muscle = a.Muscle
	return withNotice(m.exercisesScreen(t, true), "Showing all exercises")
}

func (m *Machine) onExerciseSelected(t *turn, a ExerciseSelected) Result {
	if t.s.Muscle == "" {
		return m.startOver(t)
	}
	t.s.Exercise = a.Exercise
	return withNotice(m.setsScreen(t), a.Exercise)
}

func (m *Machine) onSetChosen(t *turn, a SetChosen) Result {
	if t.s.Muscle == "" || t.s.Exercise == "" {
		return m.startOver(t)
	}
	if err := models.ValidateSet(a.Set); err != nil {
		return Result{Notice: err.Error(), Alert: true}
	}
	t.s.Set = a.Set
	return withNotice(m.weightScreen(t, ""), strconv.Itoa(a.Set))
}

func (m *Machine) onWeightChosen(t *turn, a WeightChosen) Result {
	if t.s.State == session.EditingWeight && t.s.RecordID != "" {
		return m.onEditWeight(t, a)
	}
	if t.s.Muscle == "" || t.s.Exercise == "" || t.s.Set == 0 {
		return m.startOver(t)
	}

	w, err := models.ParseWeight(a.Weight)
	if err != nil {
		return m.weightScreen(t, validationPrefix(err))
	}
	t.s.Weight = w.String()
	return withNotice(m.repsScreen(t, ""), t.s.Weight+"kg")
}

func (m *Machine) onRepsChosen(t *turn, a RepsChosen) Result {
	if t.s.State == session.EditingReps && t.s.RecordID != "" {
		return m.onEditReps(t, a)
	}
	s := t.s
	if s.Muscle == "" || s.Exercise == "" || s.Set == 0 || s.Weight == "" {
		return m.startOver(t)
	}
	if err := models.ValidateReps(a.Reps); err != nil {
		return m.repsScreen(t, validationPrefix(err))
	}
	weight, err := decimal.NewFromString(s.Weight)
	if err != nil {
		m.log.Warn("corrupt weight in session", "user_id", t.userID, "weight", s.Weight)
		return m.startOver(t)
	}
	s.Reps = a.Reps
	return withNotice(m.commit(t, weight), strconv.Itoa(a.Reps))
}

// commit сохраняет подход и решает, предлагать ли продолжить упражнение
func (m *Machine) commit(t *turn, weight decimal.Decimal) Result {
	s := t.s
	entry := models.TrainingEntry{
		ID:       m.newID(),
		Date:     m.today(),
		UserID:   t.userID,
		Muscle:   s.Muscle,
		Exercise: s.Exercise,
		Set:      s.Set,
		Weight:   weight,
		Reps:     s.Reps,
	}

	// рекорд до сохранения, чтобы сравнить с новым подходом
	var prev *models.PersonalRecord
	err := m.do(t, func(ctx context.Context) (err error) {
		prev, err = m.trainings.PersonalRecord(ctx, t.userID, entry.Muscle, entry.Exercise)
		return err
	})
	if err != nil {
		m.log.Warn("personal record unavailable", "user_id", t.userID, "exercise", entry.Exercise, "error", err)
		prev = nil
	}

	err = m.do(t, func(ctx context.Context) error {
		return m.trainings.Save(ctx, entry)
	})

	*s = session.Session{}

	if err != nil {
		m.log.Error("training not saved", "user_id", t.userID,
			"muscle", entry.Muscle, "exercise", entry.Exercise, "error", err)
		prefix := "❌ Error writing to database. Please try again.\n\n"
		if errors.Is(err, repository.ErrNotFound) {
			prefix = fmt.Sprintf("❌ %s is not in your catalog anymore, nothing was saved.\n\n", esc(entry.Exercise))
		}
		return m.musclesScreen(t, prefix)
	}

	m.log.Info("training saved", "user_id", t.userID, "id", entry.ID,
		"muscle", entry.Muscle, "exercise", entry.Exercise, "set", entry.Set,
		"weight", entry.Weight.String(), "reps", entry.Reps)
	m.backupAsync(entry)

	text := summaryText(entry)
	if prev.Beats(entry.Weight, entry.Reps) {
		text += fmt.Sprintf("\n\n🏆 New personal record! Previous best: %s for %d reps.", kg(prev.Weight), prev.Reps)
	}

	var completed []int
	err = m.do(t, func(ctx context.Context) (err error) {
		completed, err = m.trainings.CompletedSets(ctx, t.userID, entry.Muscle, entry.Exercise, entry.Date)
		return err
	})
	if err != nil {
		// экран подходов пересчитает их сам
		m.log.Warn("completed sets unavailable after save", "user_id", t.userID, "error", err)
	}

	if err != nil || len(m.presets.Get().RemainingSets(completed)) > 0 {
		// кнопка продолжения может прийти без мышцы (длинные имена не влезают в callback),
		// поэтому выбор остаётся в сессии до следующего экрана мышц
		s.State = session.SelectingMuscle
		s.Muscle = entry.Muscle
		s.Exercise = entry.Exercise
		return single(Reply{
			Text: text,
			HTML: true,
			Choices: buttons(btn("▶️ Continue "+entry.Exercise,
				ContinueExercise{Muscle: entry.Muscle, Exercise: entry.Exercise})),
			PerRow: 1,
			Footer: buttons(btn("💪 Select body part", BackToMuscles{})),
		})
	}

	text += fmt.Sprintf("\n\n✅ All sets of %s are done for today.\n\n", esc(entry.Exercise))
	return m.musclesScreen(t, text)
}

func (m *Machine) backupAsync(entry models.TrainingEntry) {
	if m.backup == nil {
		return
	}
	m.backups.Add(1)
	go func() {
		defer m.backups.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.backupTimeout)
		defer cancel()
		if err := m.backup.AppendTraining(ctx, entry); err != nil {
			m.log.Warn("backup failed", "user_id", entry.UserID, "id", entry.ID, "error", err)
		}
	}()
}

func (m *Machine) onContinue(t *turn, a ContinueExercise) Result {
	muscle := a.Muscle
	if muscle == "" {
		muscle = t.s.Muscle
	}
	if muscle == "" {
		return m.startOver(t)
	}
	*t.s = session.Session{Muscle: muscle, Exercise: a.Exercise}
	return withNotice(m.setsScreen(t), "Continue "+a.Exercise)
}

// --- редактирование каталога ---

func (m *Machine) onAddMuscle(t *turn) Result {
	t.s.State = session.WaitingMuscleName
	t.s.Pending = session.PendingMuscleName
	return single(Reply{
		Text:   "Please enter the name of the new muscle group:",
		Footer: buttons(btn("✖️ Cancel", BackToMuscles{})),
		Fresh:  true,
	})
}

func (m *Machine) onAddExercise(t *turn) Result {
	if t.s.Muscle == "" {
		return m.startOver(t)
	}
	t.s.State = session.WaitingExerciseName
	t.s.Pending = session.PendingExerciseName
	return single(Reply{
		Text:   fmt.Sprintf("Please enter the name of the new exercise for %s:", esc(t.s.Muscle)),
		HTML:   true,
		Footer: buttons(btn("✖️ Cancel", BackToExercises{})),
		Fresh:  true,
	})
}

func (m *Machine) onDeleteExercise(t *turn) Result {
	s := t.s
	if s.Muscle == "" {
		return m.startOver(t)
	}
	s.State = session.DeletingExercise

	var names []string
	err := m.do(t, func(ctx context.Context) (err error) {
		names, err = m.catalog.ListExercises(ctx, s.Muscle, t.userID)
		return err
	})
	if err != nil {
		return m.failure(t, "list exercises for deletion", err)
	}

	text := "Select an exercise to delete (or hide):"
	if len(names) == 0 {
		text = "There are no exercises to delete."
	}
	choices := make([]Button, 0, len(names))
	for _, name := range names {
		choices = append(choices, btn("🗑 "+name, DeleteChosen{Exercise: name}))
	}
	return single(Reply{
		Text:    text,
		Choices: buttons(choices...),
		PerRow:  1,
		Footer:  buttons(btn("⬅️ Back", BackToExercises{})),
	})
}

// onDeleteChosen сначала скрывает глобальное упражнение, иначе удаляет приватное
func (m *Machine) onDeleteChosen(t *turn, a DeleteChosen) Result {
	s := t.s
	if s.Muscle == "" {
		return m.startOver(t)
	}
	failed := Result{Notice: "Failed to delete exercise.", Alert: true}

	var ok bool
	err := m.do(t, func(ctx context.Context) (err error) {
		ok, err = m.catalog.HideExercise(ctx, t.userID, a.Exercise, s.Muscle)
		return err
	})
	if err != nil {
		m.log.Error("hide exercise failed", "user_id", t.userID, "exercise", a.Exercise, "error", err)
		return failed
	}
	if !ok {
		err = m.do(t, func(ctx context.Context) (err error) {
			ok, err = m.catalog.DeletePrivateExercise(ctx, t.userID, a.Exercise, s.Muscle)
			return err
		})
		if err != nil {
			m.log.Error("delete exercise failed", "user_id", t.userID, "exercise", a.Exercise, "error", err)
			return failed
		}
	}
	if !ok {
		return failed
	}

	m.log.Info("exercise removed", "user_id", t.userID, "muscle", s.Muscle, "exercise", a.Exercise)
	return withNotice(m.exercisesScreen(t, false), fmt.Sprintf("Exercise '%s' deleted.", a.Exercise))
}

// --- свободный текст ---

func (m *Machine) onText(t *turn, a Text) Result {
	switch t.s.State {
	case session.WaitingMuscleName:
		return m.onMuscleName(t, a.Text)
	case session.WaitingExerciseName:
		return m.onExerciseName(t, a.Text)
	case session.SelectingWeight, session.EditingWeight:
		return m.onWeightChosen(t, WeightChosen{Weight: a.Text})
	case session.SelectingReps, session.EditingReps:
		reps, err := strconv.Atoi(strings.TrimSpace(a.Text))
		if err != nil {
			err = models.ValidationError{Field: "reps", Message: "Reps must be a whole number"}
			if t.s.State == session.EditingReps {
				return m.editRepsScreen(t, validationPrefix(err))
			}
			return m.repsScreen(t, validationPrefix(err))
		}
		return m.onRepsChosen(t, RepsChosen{Reps: reps})
	}
	return single(Reply{Text: "Send /gym to record a training or /edit to change today's records."})
}

func (m *Machine) onMuscleName(t *turn, text string) Result {
	name, err := models.ValidateName("muscle", text)
	if err != nil {
		return single(Reply{
			Text:   validationPrefix(err) + "Please enter the name of the new muscle group:",
			HTML:   true,
			Footer: buttons(btn("✖️ Cancel", BackToMuscles{})),
		})
	}

	err = m.do(t, func(ctx context.Context) error {
		_, err := m.catalog.AddMuscle(ctx, name, t.userID)
		return err
	})
	if err != nil {
		return m.failure(t, "add muscle", err)
	}
	m.log.Info("muscle added", "user_id", t.userID, "muscle", name)

	t.s.Pending = ""
	res := m.musclesScreen(t, "")
	res.Replies = append([]Reply{{Text: fmt.Sprintf("Muscle '%s' added!", name)}}, res.Replies...)
	return res
}

func (m *Machine) onExerciseName(t *turn, text string) Result {
	muscle := t.s.Muscle
	if muscle == "" {
		*t.s = session.Session{}
		res := m.musclesScreen(t, "Start again. ")
		res.Replies = append([]Reply{{Text: "Invalid name or muscle context lost."}}, res.Replies...)
		return res
	}

	name, err := models.ValidateName("exercise", text)
	if err != nil {
		return single(Reply{
			Text:   validationPrefix(err) + fmt.Sprintf("Please enter the name of the new exercise for %s:", esc(muscle)),
			HTML:   true,
			Footer: buttons(btn("✖️ Cancel", BackToExercises{})),
		})
	}

	err = m.do(t, func(ctx context.Context) error {
		_, err := m.catalog.AddExercise(ctx, name, muscle, t.userID)
		return err
	})
	if err != nil {
		return m.failure(t, "add exercise", err)
	}
	m.log.Info("exercise added", "user_id", t.userID, "muscle", muscle, "exercise", name)

	t.s.Pending = ""
	res := m.exercisesScreen(t, false)
	res.Replies = append([]Reply{{Text: fmt.Sprintf("Exercise '%s' added to %s!", name, muscle)}}, res.Replies...)
	return res
}
