package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymbot/internal/models"
)

// querier общий интерфейс *sql.DB и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// visibleMuscle условие видимости мышцы: глобальная и не скрытая пользователем
// либо приватная и принадлежащая ему. userID = 0 оставляет только глобальные.
func visibleMuscle(alias, userParam string) string {
	return fmt.Sprintf(`((%[1]s.is_global AND NOT EXISTS (
		SELECT 1 FROM user_hidden_muscles h WHERE h.muscle_id = %[1]s.id AND h.user_id = %[2]s))
		OR (NOT %[1]s.is_global AND %[1]s.created_by = %[2]s))`, alias, userParam)
}

// visibleExercise то же правило для упражнений
func visibleExercise(alias, userParam string) string {
	return fmt.Sprintf(`((%[1]s.is_global AND NOT EXISTS (
		SELECT 1 FROM user_hidden_exercises h WHERE h.exercise_id = %[1]s.id AND h.user_id = %[2]s))
		OR (NOT %[1]s.is_global AND %[1]s.created_by = %[2]s))`, alias, userParam)
}

// nullableUser превращает отсутствие пользователя в NULL для created_by
func nullableUser(userID int64) sql.NullInt64 {
	return sql.NullInt64{Int64: userID, Valid: userID != 0}
}

// CatalogRepository работает с мышцами и упражнениями (глобальными и приватными)
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт репозиторий каталога
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListMuscles возвращает имена мышц, видимых пользователю, по алфавиту
func (r *CatalogRepository) ListMuscles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT m.name FROM muscles m
		WHERE `+visibleMuscle("m", "$1")+`
		ORDER BY m.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing muscles: %w", err)
	}
	return scanNames(rows)
}

// ListExercises возвращает имена видимых упражнений мышцы по алфавиту
func (r *CatalogRepository) ListExercises(ctx context.Context, muscle string, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT e.name
		FROM exercises e
		JOIN muscles m ON e.muscle = m.id
		WHERE m.name = $1
		  AND `+visibleMuscle("m", "$2")+`
		  AND `+visibleExercise("e", "$2")+`
		ORDER BY e.name ASC`, muscle, userID)
	if err != nil {
		return nil, fmt.Errorf("listing exercises of %q: %w", muscle, err)
	}
	return scanNames(rows)
}

func scanNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddMuscle идемпотентно добавляет мышцу: если видимая мышца с таким именем
// уже есть (глобальная важнее приватной), возвращает её id
func (r *CatalogRepository) AddMuscle(ctx context.Context, name string, userID int64) (int, error) {
	id, err := resolveMuscle(ctx, r.db, name, userID)
	if err != nil {
		return 0, fmt.Errorf("adding muscle %q: %w", name, err)
	}
	return id, nil
}

// AddExercise добавляет упражнение, при необходимости создавая мышцу, в одной транзакции
func (r *CatalogRepository) AddExercise(ctx context.Context, name, muscle string, userID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	muscleID, err := resolveMuscle(ctx, tx, muscle, userID)
	if err != nil {
		return 0, fmt.Errorf("resolving muscle %q: %w", muscle, err)
	}

	exerciseID, err := resolveExercise(ctx, tx, name, muscleID, userID)
	if err != nil {
		return 0, fmt.Errorf("adding exercise %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return exerciseID, nil
}

func resolveMuscle(ctx context.Context, q querier, name string, userID int64) (int, error) {
	lookup := func() (int, error) {
		var id int
		err := q.QueryRowContext(ctx, `
			SELECT m.id FROM muscles m
			WHERE m.name = $1 AND `+visibleMuscle("m", "$2")+`
			ORDER BY m.is_global DESC
			LIMIT 1`, name, userID).Scan(&id)
		return id, err
	}

	id, err := lookup()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = q.QueryRowContext(ctx, `
		INSERT INTO muscles (name, is_global, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING id`, name, userID == 0, nullableUser(userID)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// параллельная вставка того же имени
		return lookup()
	}
	return id, err
}

func resolveExercise(ctx context.Context, q querier, name string, muscleID int, userID int64) (int, error) {
	lookup := func() (int, error) {
		var id int
		err := q.QueryRowContext(ctx, `
			SELECT e.id FROM exercises e
			WHERE e.name = $1 AND e.muscle = $2 AND `+visibleExercise("e", "$3")+`
			ORDER BY e.is_global DESC
			LIMIT 1`, name, muscleID, userID).Scan(&id)
		return id, err
	}

	id, err := lookup()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = q.QueryRowContext(ctx, `
		INSERT INTO exercises (name, muscle, is_global, created_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING id`, name, muscleID, userID == 0, nullableUser(userID)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return lookup()
	}
	return id, err
}

// HideExercise скрывает глобальное упражнение для пользователя.
// Повторное скрытие успешно. false если глобального упражнения с таким именем нет
// или у пользователя есть приватное с тем же именем: удалять надо его.
func (r *CatalogRepository) HideExercise(ctx context.Context, userID int64, exercise, muscle string) (bool, error) {
	var exerciseID int
	err := r.db.QueryRowContext(ctx, `
		SELECT e.id FROM exercises e
		JOIN muscles m ON e.muscle = m.id
		WHERE e.name = $1 AND m.name = $2 AND e.is_global
		  AND `+visibleMuscle("m", "$3")+`
		  AND NOT EXISTS (
			SELECT 1 FROM exercises p
			JOIN muscles pm ON p.muscle = pm.id
			WHERE p.name = $1 AND pm.name = $2
			  AND NOT p.is_global AND p.created_by = $3)
		ORDER BY m.is_global DESC
		LIMIT 1`, exercise, muscle, userID).Scan(&exerciseID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("finding global exercise %q: %w", exercise, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_hidden_exercises (user_id, exercise_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, exerciseID)
	if err != nil {
		return false, fmt.Errorf("hiding exercise %d: %w", exerciseID, err)
	}
	return true, nil
}

// DeletePrivateExercise удаляет приватное упражнение владельца. Записи
// тренировок остаются, ссылка на упражнение обнуляется.
func (r *CatalogRepository) DeletePrivateExercise(ctx context.Context, userID int64, exercise, muscle string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM exercises e
		USING muscles m
		WHERE e.muscle = m.id
		  AND e.name = $1 AND m.name = $2
		  AND NOT e.is_global AND e.created_by = $3`, exercise, muscle, userID)
	if err != nil {
		return false, fmt.Errorf("deleting exercise %q: %w", exercise, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- админка ---

const muscleColumns = `m.id, m.name, m.is_global, m.created_by`

func scanMuscles(rows *sql.Rows) ([]models.Muscle, error) {
	defer rows.Close()

	muscles := []models.Muscle{}
	for rows.Next() {
		var m models.Muscle
		var createdBy sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.IsGlobal, &createdBy); err != nil {
			return nil, err
		}
		if createdBy.Valid {
			m.CreatedBy = &createdBy.Int64
		}
		muscles = append(muscles, m)
	}
	return muscles, rows.Err()
}

// AllMuscles возвращает все мышцы, включая приватные
func (r *CatalogRepository) AllMuscles(ctx context.Context) ([]models.Muscle, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+muscleColumns+` FROM muscles m ORDER BY m.name, m.id`)
	if err != nil {
		return nil, fmt.Errorf("listing all muscles: %w", err)
	}
	return scanMuscles(rows)
}

// VisibleMuscles мышцы с id, видимые пользователю
func (r *CatalogRepository) VisibleMuscles(ctx context.Context, userID int64) ([]models.Muscle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+muscleColumns+` FROM muscles m
		WHERE `+visibleMuscle("m", "$1")+`
		ORDER BY m.name, m.is_global DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing visible muscles: %w", err)
	}
	return scanMuscles(rows)
}

// CreateMuscle создаёт глобальную мышцу
func (r *CatalogRepository) CreateMuscle(ctx context.Context, name string) (*models.Muscle, error) {
	m := &models.Muscle{Name: name, IsGlobal: true}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO muscles (name, is_global) VALUES ($1, TRUE) RETURNING id`, name).Scan(&m.ID)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("creating muscle %q: %w", name, err)
	}
	return m, nil
}

// UpdateMuscle переименовывает мышцу
func (r *CatalogRepository) UpdateMuscle(ctx context.Context, id int, name string) (*models.Muscle, error) {
	m := &models.Muscle{}
	var createdBy sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		UPDATE muscles m SET name = $2 WHERE m.id = $1
		RETURNING `+muscleColumns, id, name).Scan(&m.ID, &m.Name, &m.IsGlobal, &createdBy)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case isUniqueViolation(err):
		return nil, ErrConflict
	case err != nil:
		return nil, fmt.Errorf("updating muscle %d: %w", id, err)
	}
	if createdBy.Valid {
		m.CreatedBy = &createdBy.Int64
	}
	return m, nil
}

const exerciseSelect = `
	SELECT e.id, e.name, e.muscle, e.is_global, e.created_by,
	       m.id, m.name, m.is_global, m.created_by
	FROM exercises e
	JOIN muscles m ON e.muscle = m.id`

func scanExercises(rows *sql.Rows) ([]models.Exercise, error) {
	defer rows.Close()

	exercises := []models.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *e)
	}
	return exercises, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExercise(s scanner) (*models.Exercise, error) {
	e := &models.Exercise{}
	m := &models.Muscle{}
	var exCreatedBy, muCreatedBy sql.NullInt64
	if err := s.Scan(&e.ID, &e.Name, &e.MuscleID, &e.IsGlobal, &exCreatedBy,
		&m.ID, &m.Name, &m.IsGlobal, &muCreatedBy); err != nil {
		return nil, err
	}
	if exCreatedBy.Valid {
		e.CreatedBy = &exCreatedBy.Int64
	}
	if muCreatedBy.Valid {
		m.CreatedBy = &muCreatedBy.Int64
	}
	e.MuscleGroup = m
	return e, nil
}

// AllExercises возвращает все упражнения; muscleID = 0 без фильтра
func (r *CatalogRepository) AllExercises(ctx context.Context, muscleID int) ([]models.Exercise, error) {
	rows, err := r.db.QueryContext(ctx, exerciseSelect+`
		WHERE ($1 = 0 OR e.muscle = $1)
		ORDER BY m.name, e.name, e.id`, muscleID)
	if err != nil {
		return nil, fmt.Errorf("listing all exercises: %w", err)
	}
	return scanExercises(rows)
}

// VisibleExercises упражнения с id, видимые пользователю; muscleID = 0 без фильтра
func (r *CatalogRepository) VisibleExercises(ctx context.Context, userID int64, muscleID int) ([]models.Exercise, error) {
	rows, err := r.db.QueryContext(ctx, exerciseSelect+`
		WHERE ($2 = 0 OR e.muscle = $2)
		  AND `+visibleMuscle("m", "$1")+`
		  AND `+visibleExercise("e", "$1")+`
		ORDER BY m.name, e.name`, userID, muscleID)
	if err != nil {
		return nil, fmt.Errorf("listing visible exercises: %w", err)
	}
	return scanExercises(rows)
}

func (r *CatalogRepository) getExercise(ctx context.Context, id int) (*models.Exercise, error) {
	e, err := scanExercise(r.db.QueryRowContext(ctx, exerciseSelect+` WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting exercise %d: %w", id, err)
	}
	return e, nil
}

// CreateExercise создаёт глобальное упражнение в мышце muscleID
func (r *CatalogRepository) CreateExercise(ctx context.Context, name string, muscleID int) (*models.Exercise, error) {
	var id int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO exercises (name, muscle, is_global) VALUES ($1, $2, TRUE)
		RETURNING id`, name, muscleID).Scan(&id)
	switch {
	case isUniqueViolation(err):
		return nil, ErrConflict
	case isForeignKeyViolation(err):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("creating exercise %q: %w", name, err)
	}
	return r.getExercise(ctx, id)
}

// UpdateExercise меняет имя и мышцу упражнения
func (r *CatalogRepository) UpdateExercise(ctx context.Context, id int, name string, muscleID int) (*models.Exercise, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE exercises SET name = $2, muscle = $3 WHERE id = $1`, id, name, muscleID)
	switch {
	case isUniqueViolation(err):
		return nil, ErrConflict
	case isForeignKeyViolation(err):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("updating exercise %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.getExercise(ctx, id)
}
