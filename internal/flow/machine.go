// Package flow is the conversation controller of the bot: it takes one decoded
// user action at a time, moves the user's session through the selection
// steps (muscle, exercise, set, weight, reps) and commits training records.
// It knows nothing about Telegram; results are plain text plus button grids.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gymbot/internal/models"
	"gymbot/internal/personalize"
	"gymbot/internal/presets"
	"gymbot/internal/session"

	"github.com/shopspring/decimal"
)

// Catalog мышцы и упражнения в области видимости пользователя
type Catalog interface {
	ListMuscles(ctx context.Context, userID int64) ([]string, error)
	ListExercises(ctx context.Context, muscle string, userID int64) ([]string, error)
	AddMuscle(ctx context.Context, name string, userID int64) (int, error)
	AddExercise(ctx context.Context, name, muscle string, userID int64) (int, error)
	HideExercise(ctx context.Context, userID int64, exercise, muscle string) (bool, error)
	DeletePrivateExercise(ctx context.Context, userID int64, exercise, muscle string) (bool, error)
}

// Trainings хранилище записей тренировок
type Trainings interface {
	Save(ctx context.Context, t models.TrainingEntry) error
	Update(ctx context.Context, id string, userID int64, weight decimal.Decimal, reps int) error
	CompletedSets(ctx context.Context, userID int64, muscle, exercise string, day time.Time) ([]int, error)
	History(ctx context.Context, userID int64, muscle, exercise string, today time.Time) ([]models.HistoryEntry, error)
	PersonalRecord(ctx context.Context, userID int64, muscle, exercise string) (*models.PersonalRecord, error)
	ListDay(ctx context.Context, userID int64, day time.Time) ([]models.Training, error)
}

// Exercises упорядоченный список упражнений мышцы
type Exercises interface {
	OrderedExercises(ctx context.Context, muscle string, userID int64, showAll bool) (personalize.List, error)
}

// Backup копия каждой сохранённой записи во внешнее хранилище
type Backup interface {
	AppendTraining(ctx context.Context, t models.TrainingEntry) error
}

// Deps зависимости машины. Backup может быть nil.
type Deps struct {
	Catalog   Catalog
	Trainings Trainings
	Exercises Exercises
	Sessions  session.Store
	Presets   *presets.Holder
	Backup    Backup
	Log       *slog.Logger
}

// Config таймауты и часовой пояс
type Config struct {
	StorageTimeout time.Duration
	BackupTimeout  time.Duration
	Location       *time.Location
}

// Machine машина состояний диалога
type Machine struct {
	catalog   Catalog
	trainings Trainings
	exercises Exercises
	sessions  session.Store
	presets   *presets.Holder
	backup    Backup
	log       *slog.Logger

	timeout       time.Duration
	backupTimeout time.Duration
	loc           *time.Location

	now   func() time.Time
	newID func() string

	// ходы одного пользователя выполняются по очереди
	locks [lockStripes]sync.Mutex

	backups sync.WaitGroup
}

// New создаёт машину состояний
func New(d Deps, cfg Config) *Machine {
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = 5 * time.Second
	}
	if cfg.BackupTimeout <= 0 {
		cfg.BackupTimeout = 15 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Machine{
		catalog:       d.Catalog,
		trainings:     d.Trainings,
		exercises:     d.Exercises,
		sessions:      d.Sessions,
		presets:       d.Presets,
		backup:        d.Backup,
		log:           d.Log,
		timeout:       cfg.StorageTimeout,
		backupTimeout: cfg.BackupTimeout,
		loc:           cfg.Location,
		now:           time.Now,
		newID:         models.NewTrainingID,
	}
}

// turn состояние обработки одного действия
type turn struct {
	ctx    context.Context
	userID int64
	s      *session.Session
	// drop удалить сессию вместо сохранения
	drop bool
}

// Handle обрабатывает действие пользователя. Действия одного пользователя
// выполняются по очереди, разных пользователей параллельно.
func (m *Machine) Handle(ctx context.Context, userID int64, a Action) Result {
	unlock := m.lock(userID)
	defer unlock()

	t := &turn{ctx: ctx, userID: userID}

	var s session.Session
	err := m.do(t, func(ctx context.Context) (err error) {
		s, err = m.sessions.Get(ctx, userID)
		return err
	})
	if err != nil {
		return m.failure(t, "load session", err)
	}
	t.s = &s

	m.log.Debug("action", "user_id", userID, "action", fmt.Sprintf("%T", a), "state", s.State)
	res := m.dispatch(t, a)

	err = m.do(t, func(ctx context.Context) error {
		if t.drop {
			return m.sessions.Delete(ctx, userID)
		}
		t.s.UpdatedAt = m.now()
		return m.sessions.Save(ctx, userID, *t.s)
	})
	if err != nil {
		m.log.Warn("session not stored", "user_id", userID, "error", err)
	}
	return res
}

// Wait дожидается фоновых копий записей
func (m *Machine) Wait() {
	m.backups.Wait()
}

// lockStripes число мьютексов на всех пользователей. Разные пользователи
// могут делить мьютекс, память от числа пользователей не растёт.
const lockStripes = 64

func (m *Machine) stripe(userID int64) *sync.Mutex {
	return &m.locks[uint64(userID)%lockStripes]
}

func (m *Machine) lock(userID int64) func() {
	l := m.stripe(userID)
	l.Lock()
	return l.Unlock
}

// do выполняет вызов хранилища с ограничением по времени
func (m *Machine) do(t *turn, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(t.ctx, m.timeout)
	defer cancel()
	return fn(ctx)
}

func (m *Machine) today() time.Time {
	return m.now().In(m.loc)
}

func (m *Machine) dispatch(t *turn, a Action) Result {
	switch a := a.(type) {
	case Start:
		*t.s = session.Session{}
		return m.musclesScreen(t, "")
	case Menu:
		return m.onMenu(t)
	case EditMenu:
		return m.onEditMenu(t)
	case EditToday:
		return m.onEditToday(t)
	case EditRecord:
		return m.onEditRecord(t, a)
	case MuscleSelected:
		return m.onMuscleSelected(t, a)
	case ShowAll:
		return m.onShowAll(t, a)
	case ExerciseSelected:
		return m.onExerciseSelected(t, a)
	case SetChosen:
		return m.onSetChosen(t, a)
	case WeightChosen:
		return m.onWeightChosen(t, a)
	case RepsChosen:
		return m.onRepsChosen(t, a)
	case ContinueExercise:
		return m.onContinue(t, a)
	case BackToMuscles:
		*t.s = session.Session{}
		return withNotice(m.musclesScreen(t, ""), "Going back to body parts")
	case BackToExercises:
		if t.s.Muscle == "" {
			return m.startOver(t)
		}
		return withNotice(m.exercisesScreen(t, false), "Going back to exercises")
	case BackToSets:
		if t.s.Muscle == "" || t.s.Exercise == "" {
			return m.startOver(t)
		}
		return withNotice(m.setsScreen(t), "Going back to sets")
	case AddMuscle:
		return m.onAddMuscle(t)
	case AddExercise:
		return m.onAddExercise(t)
	case DeleteExercise:
		return m.onDeleteExercise(t)
	case DeleteChosen:
		return m.onDeleteChosen(t, a)
	case Text:
		return m.onText(t, a)
	}
	m.log.Warn("unhandled action", "user_id", t.userID, "action", fmt.Sprintf("%T", a))
	return Result{}
}

func withNotice(r Result, notice string) Result {
	if r.Notice == "" {
		r.Notice = notice
	}
	return r
}

// failure нейтральное сообщение об ошибке хранилища с кнопкой повтора
func (m *Machine) failure(t *turn, op string, err error) Result {
	m.log.Error("storage call failed", "op", op, "user_id", t.userID, "error", err)
	return Result{
		Replies: []Reply{{
			Text:   "⚠️ Something went wrong, please try again.",
			Footer: buttons(btn("🔄 Try again", Start{})),
		}},
		Notice: "Please try again",
	}
}

// startOver потеряна сессия: начинаем с выбора мышцы
func (m *Machine) startOver(t *turn) Result {
	m.log.Info("session context lost, starting over", "user_id", t.userID, "state", t.s.State)
	*t.s = session.Session{}
	return withNotice(m.musclesScreen(t, "⌛ Your session has expired, let's start over.\n\n"), "Starting over")
}
