package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gymbot/internal/models"
)

// UserRepository работает с пользователями бота
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository создаёт репозиторий пользователей
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Touch регистрирует пользователя при первом обращении и обновляет
// имя и время последнего взаимодействия при последующих
func (r *UserRepository) Touch(ctx context.Context, u models.User, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, registration_date, last_interaction, lastname, first_name, username)
		VALUES ($1, $2, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			last_interaction = EXCLUDED.last_interaction,
			lastname = EXCLUDED.lastname,
			first_name = EXCLUDED.first_name,
			username = EXCLUDED.username`,
		u.ID, at, u.LastName, u.FirstName, u.Username)
	if err != nil {
		return fmt.Errorf("touching user %d: %w", u.ID, err)
	}
	return nil
}

// Get возвращает пользователя по Telegram ID
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	var lastInteraction sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(first_name, ''), COALESCE(lastname, ''), COALESCE(username, ''),
		       COALESCE(bio, ''), registration_date, last_interaction
		FROM users WHERE id = $1`, id).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Bio, &u.RegistrationDate, &lastInteraction,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %d: %w", id, err)
	}
	u.LastInteraction = lastInteraction.Time
	return u, nil
}
