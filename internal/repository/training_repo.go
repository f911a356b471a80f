package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymbot/internal/models"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// wallClock сохраняет показания часов в заданной зоне как есть: колонка
// TIMESTAMP без зоны, а драйверы по-разному обходятся с time.Location
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// TrainingRepository работает с записями тренировок
type TrainingRepository struct {
	db *sql.DB
}

// NewTrainingRepository создаёт репозиторий тренировок
func NewTrainingRepository(db *sql.DB) *TrainingRepository {
	return &TrainingRepository{db: db}
}

// Save вставляет запись, резолвя мышцу и упражнение по именам в области
// видимости пользователя (глобальные в приоритете). ErrNotFound если имя не найдено.
func (r *TrainingRepository) Save(ctx context.Context, t models.TrainingEntry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO training (id, date, user_id, muscle_id, exercise_id, set, weight, reps)
		SELECT $1::varchar, $2::timestamp, $3::bigint, m.id, e.id, $6::int, $7::numeric, $8::numeric
		FROM exercises e
		JOIN muscles m ON e.muscle = m.id
		WHERE m.name = $4 AND e.name = $5
		  AND `+visibleMuscle("m", "$3")+`
		  AND `+visibleExercise("e", "$3")+`
		ORDER BY e.is_global DESC, m.is_global DESC
		LIMIT 1`,
		t.ID, wallClock(t.Date), t.UserID, t.Muscle, t.Exercise, t.Set, t.Weight, t.Reps)
	if err != nil {
		return fmt.Errorf("saving training %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s / %s: %w", t.Muscle, t.Exercise, ErrNotFound)
	}
	return nil
}

// Update меняет вес и повторения записи владельца.
// Для чужой и несуществующей записи одинаково возвращает ErrAccessDenied.
func (r *TrainingRepository) Update(ctx context.Context, id string, userID int64, weight decimal.Decimal, reps int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE training SET weight = $1, reps = $2
		WHERE id = $3 AND user_id = $4`, weight, reps, id, userID)
	if err != nil {
		return fmt.Errorf("updating training %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccessDenied
	}
	return nil
}

// CompletedSets номера подходов, уже записанных за день, по возрастанию
func (r *TrainingRepository) CompletedSets(ctx context.Context, userID int64, muscle, exercise string, day time.Time) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT t.set
		FROM training t
		JOIN muscles m ON t.muscle_id = m.id
		JOIN exercises e ON t.exercise_id = e.id
		WHERE t.user_id = $1 AND m.name = $2 AND e.name = $3
		  AND t.date::date = $4::date
		ORDER BY t.set ASC`, userID, muscle, exercise, day.Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("completed sets: %w", err)
	}
	defer rows.Close()

	var sets []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// History подходы упражнения строго до today: новые дни первыми, внутри дня по номеру подхода
func (r *TrainingRepository) History(ctx context.Context, userID int64, muscle, exercise string, today time.Time) ([]models.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.date, t.set, t.weight, t.reps::int
		FROM training t
		JOIN muscles m ON t.muscle_id = m.id
		JOIN exercises e ON t.exercise_id = e.id
		WHERE t.user_id = $1 AND m.name = $2 AND e.name = $3
		  AND t.date::date < $4::date
		ORDER BY t.date::date DESC, t.set ASC, t.date DESC`,
		userID, muscle, exercise, today.Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var history []models.HistoryEntry
	for rows.Next() {
		var h models.HistoryEntry
		if err := rows.Scan(&h.Date, &h.Set, &h.Weight, &h.Reps); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// PersonalRecord лучший подход: максимальный вес, затем повторения, затем самый свежий.
// nil если записей нет.
func (r *TrainingRepository) PersonalRecord(ctx context.Context, userID int64, muscle, exercise string) (*models.PersonalRecord, error) {
	pr := &models.PersonalRecord{}
	err := r.db.QueryRowContext(ctx, `
		SELECT t.weight, t.reps::int, t.date
		FROM training t
		JOIN muscles m ON t.muscle_id = m.id
		JOIN exercises e ON t.exercise_id = e.id
		WHERE t.user_id = $1 AND m.name = $2 AND e.name = $3
		ORDER BY t.weight DESC, t.reps DESC, t.date DESC
		LIMIT 1`, userID, muscle, exercise).Scan(&pr.Weight, &pr.Reps, &pr.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("personal record: %w", err)
	}
	return pr, nil
}

// TopExercises самые частые упражнения пользователя в мышце
func (r *TrainingRepository) TopExercises(ctx context.Context, userID int64, muscle string, limit int) ([]models.ExerciseFrequency, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.name, COUNT(*) AS frequency
		FROM training t
		JOIN muscles m ON t.muscle_id = m.id
		JOIN exercises e ON t.exercise_id = e.id
		WHERE t.user_id = $1 AND m.name = $2
		GROUP BY e.name
		ORDER BY frequency DESC, e.name ASC
		LIMIT $3`, userID, muscle, limit)
	if err != nil {
		return nil, fmt.Errorf("top exercises: %w", err)
	}
	defer rows.Close()

	var top []models.ExerciseFrequency
	for rows.Next() {
		var f models.ExerciseFrequency
		if err := rows.Scan(&f.Name, &f.Count); err != nil {
			return nil, err
		}
		top = append(top, f)
	}
	return top, rows.Err()
}

const trainingSelect = `
	SELECT t.id, t.date, COALESCE(t.user_id, 0),
	       COALESCE(t.muscle_id, 0), COALESCE(t.exercise_id, 0),
	       COALESCE(m.name, ''), COALESCE(e.name, ''),
	       t.set, t.weight, t.reps::int
	FROM training t
	LEFT JOIN muscles m ON t.muscle_id = m.id
	LEFT JOIN exercises e ON t.exercise_id = e.id`

func scanTraining(s scanner) (*models.Training, error) {
	t := &models.Training{}
	err := s.Scan(&t.ID, &t.Date, &t.UserID, &t.MuscleID, &t.ExerciseID,
		&t.MuscleName, &t.ExerciseName, &t.Set, &t.Weight, &t.Reps)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TrainingRepository) list(ctx context.Context, query string, args ...any) ([]models.Training, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trainings := []models.Training{}
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		trainings = append(trainings, *t)
	}
	return trainings, rows.Err()
}

// ListDay записи пользователя за день в порядке записи
func (r *TrainingRepository) ListDay(ctx context.Context, userID int64, day time.Time) ([]models.Training, error) {
	trainings, err := r.list(ctx, trainingSelect+`
		WHERE t.user_id = $1 AND t.date::date = $2::date
		ORDER BY t.date ASC, t.set ASC`, userID, day.Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("listing day: %w", err)
	}
	return trainings, nil
}

// ListAll все записи, новые первыми
func (r *TrainingRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Training, error) {
	trainings, err := r.list(ctx, trainingSelect+`
		ORDER BY t.date DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing trainings: %w", err)
	}
	return trainings, nil
}

// ListByUser записи пользователя, новые первыми
func (r *TrainingRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Training, error) {
	trainings, err := r.list(ctx, trainingSelect+`
		WHERE t.user_id = $1
		ORDER BY t.date DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing trainings of user %d: %w", userID, err)
	}
	return trainings, nil
}

// Get возвращает запись по id
func (r *TrainingRepository) Get(ctx context.Context, id string) (*models.Training, error) {
	t, err := scanTraining(r.db.QueryRowContext(ctx, trainingSelect+` WHERE t.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting training %s: %w", id, err)
	}
	return t, nil
}
