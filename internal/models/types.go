package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User представляет пользователя Telegram, который хоть раз писал боту
type User struct {
	ID               int64     `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"lastname"`
	Username         string    `json:"username"`
	Bio              string    `json:"bio,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
	LastInteraction  time.Time `json:"last_interaction"`
}

// TrainingEntry описывает подход, который нужно сохранить.
// Мышца и упражнение задаются именами и резолвятся в id при вставке.
type TrainingEntry struct {
	ID       string
	Date     time.Time
	UserID   int64
	Muscle   string
	Exercise string
	Set      int
	Weight   decimal.Decimal
	Reps     int
}

// NewTrainingID 32 hex-символа, влезает в training.id VARCHAR(32)
func NewTrainingID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Training представляет сохранённую запись тренировки вместе с именами
type Training struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	UserID       int64           `json:"user_id"`
	MuscleID     int             `json:"muscle_id"`
	ExerciseID   int             `json:"exercise_id"`
	MuscleName   string          `json:"muscle_name"`
	ExerciseName string          `json:"exercise_name"`
	Set          int             `json:"set"`
	Weight       decimal.Decimal `json:"weight"`
	Reps         int             `json:"reps"`
}

// HistoryEntry одна строка истории упражнения
type HistoryEntry struct {
	Date   time.Time
	Set    int
	Weight decimal.Decimal
	Reps   int
}

// PersonalRecord лучший подход пользователя в упражнении
type PersonalRecord struct {
	Weight decimal.Decimal
	Reps   int
	Date   time.Time
}

// Beats reports whether a new set of weight x reps tops the record.
func (pr *PersonalRecord) Beats(weight decimal.Decimal, reps int) bool {
	if pr == nil {
		return false
	}
	if weight.GreaterThan(pr.Weight) {
		return true
	}
	return weight.Equal(pr.Weight) && reps > pr.Reps
}

// ExerciseFrequency сколько раз пользователь записывал упражнение
type ExerciseFrequency struct {
	Name  string
	Count int
}
