// Package session keeps the per-user, in-progress selections of the logging
// conversation. Sessions are ephemeral: losing one only forces the user to
// start the flow again.
package session

import (
	"context"
	"time"
)

// State текущий шаг диалога
type State string

const (
	None                State = ""
	SelectingMuscle     State = "selecting_muscle"
	SelectingExercise   State = "selecting_exercise"
	SelectingSet        State = "selecting_set"
	SelectingWeight     State = "selecting_weight"
	SelectingReps       State = "selecting_reps"
	WaitingMuscleName   State = "waiting_muscle_name"
	WaitingExerciseName State = "waiting_exercise_name"
	DeletingExercise    State = "deleting_exercise"
	EditingWeight       State = "editing_weight"
	EditingReps         State = "editing_reps"
)

// Pending markers for free-text input.
const (
	PendingMuscleName   = "muscle_name"
	PendingExerciseName = "exercise_name"
)

// Session выбор пользователя на текущем шаге
type Session struct {
	State    State  `json:"state"`
	Muscle   string `json:"muscle,omitempty"`
	Exercise string `json:"exercise,omitempty"`
	Set      int    `json:"set,omitempty"`
	// Weight хранится в каноническом виде ("2.5"), см. models.ParseWeight
	Weight    string    `json:"weight,omitempty"`
	Reps      int       `json:"reps,omitempty"`
	Pending   string    `json:"pending,omitempty"`
	RecordID  string    `json:"record_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClearSelections сбрасывает всё, кроме pending-маркера
func (s *Session) ClearSelections() {
	s.Muscle = ""
	s.Exercise = ""
	s.Set = 0
	s.Weight = ""
	s.Reps = 0
	s.RecordID = ""
}

// Store хранилище сессий по user id. Отсутствующая сессия не ошибка: Get
// возвращает пустую Session.
type Store interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Save(ctx context.Context, userID int64, s Session) error
	Delete(ctx context.Context, userID int64) error
}
