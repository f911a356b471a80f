package flow

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"gymbot/internal/models"
	"gymbot/internal/personalize"
	"gymbot/internal/presets"
	"gymbot/internal/repository"
	"gymbot/internal/session"

	"github.com/shopspring/decimal"
)

// fakeCatalog каталог в памяти с теми же правилами видимости
type fakeCatalog struct {
	mu      sync.Mutex
	global  map[string][]string
	private map[int64]map[string][]string
	hidden  map[int64]map[string]bool
	err     error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		global: map[string][]string{
			"Chest": {"Bench press", "Bench press incline", "Peck Deck"},
			"Legs":  {"Hack squat", "Leg extension"},
			"Abs":   {"Abdominal machine"},
		},
		private: map[int64]map[string][]string{},
		hidden:  map[int64]map[string]bool{},
	}
}

func hiddenKey(muscle, exercise string) string { return muscle + "/" + exercise }

func (c *fakeCatalog) ListMuscles(_ context.Context, userID int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var names []string
	for m := range c.global {
		names = append(names, m)
	}
	for m := range c.private[userID] {
		if !slices.Contains(names, m) {
			names = append(names, m)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *fakeCatalog) ListExercises(_ context.Context, muscle string, userID int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.visible(muscle, userID), nil
}

func (c *fakeCatalog) visible(muscle string, userID int64) []string {
	var names []string
	for _, e := range c.global[muscle] {
		if !c.hidden[userID][hiddenKey(muscle, e)] {
			names = append(names, e)
		}
	}
	for _, e := range c.private[userID][muscle] {
		if !slices.Contains(names, e) {
			names = append(names, e)
		}
	}
	sort.Strings(names)
	return names
}

func (c *fakeCatalog) AddMuscle(_ context.Context, name string, userID int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.global[name]; ok {
		return 1, nil
	}
	if c.private[userID] == nil {
		c.private[userID] = map[string][]string{}
	}
	if _, ok := c.private[userID][name]; !ok {
		c.private[userID][name] = nil
	}
	return 2, nil
}

func (c *fakeCatalog) AddExercise(_ context.Context, name, muscle string, userID int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.visible(muscle, userID), name) {
		return 1, nil
	}
	if c.private[userID] == nil {
		c.private[userID] = map[string][]string{}
	}
	c.private[userID][muscle] = append(c.private[userID][muscle], name)
	return 2, nil
}

func (c *fakeCatalog) HideExercise(_ context.Context, userID int64, exercise, muscle string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.global[muscle], exercise) {
		return false, nil
	}
	// приватная копия с тем же именем удаляется, а не скрывается
	if slices.Contains(c.private[userID][muscle], exercise) {
		return false, nil
	}
	if c.hidden[userID] == nil {
		c.hidden[userID] = map[string]bool{}
	}
	c.hidden[userID][hiddenKey(muscle, exercise)] = true
	return true, nil
}

func (c *fakeCatalog) DeletePrivateExercise(_ context.Context, userID int64, exercise, muscle string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.private[userID][muscle]
	i := slices.Index(list, exercise)
	if i < 0 {
		return false, nil
	}
	c.private[userID][muscle] = slices.Delete(list, i, i+1)
	return true, nil
}

// fakeTrainings записи в памяти
type fakeTrainings struct {
	mu      sync.Mutex
	catalog *fakeCatalog
	entries []models.TrainingEntry

	saveErr      error
	historyErr   error
	completedErr error
}

func (f *fakeTrainings) Save(_ context.Context, t models.TrainingEntry) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.catalog.mu.Lock()
	known := slices.Contains(f.catalog.visible(t.Muscle, t.UserID), t.Exercise)
	f.catalog.mu.Unlock()
	if !known {
		return repository.ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, t)
	return nil
}

func (f *fakeTrainings) Update(_ context.Context, id string, userID int64, weight decimal.Decimal, reps int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.ID == id && e.UserID == userID {
			f.entries[i].Weight = weight
			f.entries[i].Reps = reps
			return nil
		}
	}
	return repository.ErrAccessDenied
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

func (f *fakeTrainings) match(userID int64, muscle, exercise string) []models.TrainingEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TrainingEntry
	for _, e := range f.entries {
		if e.UserID == userID && e.Muscle == muscle && e.Exercise == exercise {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTrainings) CompletedSets(_ context.Context, userID int64, muscle, exercise string, day time.Time) ([]int, error) {
	if f.completedErr != nil {
		return nil, f.completedErr
	}
	var sets []int
	for _, e := range f.match(userID, muscle, exercise) {
		if sameDay(e.Date, day) && !slices.Contains(sets, e.Set) {
			sets = append(sets, e.Set)
		}
	}
	slices.Sort(sets)
	return sets, nil
}

func (f *fakeTrainings) History(_ context.Context, userID int64, muscle, exercise string, today time.Time) ([]models.HistoryEntry, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var out []models.HistoryEntry
	for _, e := range f.match(userID, muscle, exercise) {
		if e.Date.Format(time.DateOnly) < today.Format(time.DateOnly) {
			out = append(out, models.HistoryEntry{Date: e.Date, Set: e.Set, Weight: e.Weight, Reps: e.Reps})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Date.Format(time.DateOnly), out[j].Date.Format(time.DateOnly)
		if di != dj {
			return di > dj
		}
		return out[i].Set < out[j].Set
	})
	return out, nil
}

func (f *fakeTrainings) PersonalRecord(_ context.Context, userID int64, muscle, exercise string) (*models.PersonalRecord, error) {
	var best *models.PersonalRecord
	for _, e := range f.match(userID, muscle, exercise) {
		if best == nil || best.Beats(e.Weight, e.Reps) ||
			(e.Weight.Equal(best.Weight) && e.Reps == best.Reps && e.Date.After(best.Date)) {
			best = &models.PersonalRecord{Weight: e.Weight, Reps: e.Reps, Date: e.Date}
		}
	}
	return best, nil
}

func (f *fakeTrainings) TopExercises(_ context.Context, userID int64, muscle string, limit int) ([]models.ExerciseFrequency, error) {
	f.mu.Lock()
	counts := map[string]int{}
	for _, e := range f.entries {
		if e.UserID == userID && e.Muscle == muscle {
			counts[e.Exercise]++
		}
	}
	f.mu.Unlock()

	var top []models.ExerciseFrequency
	for name, n := range counts {
		top = append(top, models.ExerciseFrequency{Name: name, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (f *fakeTrainings) ListDay(_ context.Context, userID int64, day time.Time) ([]models.Training, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Training
	for _, e := range f.entries {
		if e.UserID == userID && sameDay(e.Date, day) {
			out = append(out, models.Training{
				ID: e.ID, Date: e.Date, UserID: e.UserID,
				MuscleName: e.Muscle, ExerciseName: e.Exercise,
				Set: e.Set, Weight: e.Weight, Reps: e.Reps,
			})
		}
	}
	return out, nil
}

type fakeBackup struct {
	mu      sync.Mutex
	entries []models.TrainingEntry
}

func (b *fakeBackup) AppendTraining(_ context.Context, t models.TrainingEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, t)
	return nil
}

type harness struct {
	m         *Machine
	catalog   *fakeCatalog
	trainings *fakeTrainings
	sessions  *session.MemoryStore
	backup    *fakeBackup
	clock     time.Time
}

const testUser int64 = 42

func newHarness(t *testing.T) *harness {
	t.Helper()
	catalog := newFakeCatalog()
	trainings := &fakeTrainings{catalog: catalog}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &harness{
		catalog:   catalog,
		trainings: trainings,
		sessions:  session.NewMemoryStore(),
		backup:    &fakeBackup{},
		clock:     time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC),
	}
	h.m = New(Deps{
		Catalog:   catalog,
		Trainings: trainings,
		Exercises: personalize.New(catalog, trainings, log),
		Sessions:  h.sessions,
		Presets:   presets.NewHolder(presets.Default()),
		Backup:    h.backup,
		Log:       log,
	}, Config{StorageTimeout: time.Second, Location: time.UTC})

	h.m.now = func() time.Time { return h.clock }
	seq := 0
	h.m.newID = func() string {
		seq++
		return "rec" + strconv.Itoa(seq)
	}
	return h
}

func (h *harness) do(a Action) Result {
	return h.m.Handle(context.Background(), testUser, a)
}

func (h *harness) session(t *testing.T) session.Session {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), testUser)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// logSet проводит пользователя через полный выбор подхода
func (h *harness) logSet(muscle, exercise string, set int, weight string, reps int) Result {
	h.do(Start{})
	h.do(MuscleSelected{Muscle: muscle})
	h.do(ExerciseSelected{Exercise: exercise})
	h.do(SetChosen{Set: set})
	h.do(WeightChosen{Weight: weight})
	return h.do(RepsChosen{Reps: reps})
}

func buttonTexts(bs []Button) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Text)
	}
	return out
}

func lastReply(t *testing.T, r Result) Reply {
	t.Helper()
	if len(r.Replies) == 0 {
		t.Fatal("no replies")
	}
	return r.Replies[len(r.Replies)-1]
}
