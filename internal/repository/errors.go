package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrNotFound мышца, упражнение или запись не найдены в видимой пользователю области
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied запись не существует или принадлежит другому пользователю
	ErrAccessDenied = errors.New("not found or access denied")
	// ErrConflict нарушение уникальности имени
	ErrConflict = errors.New("already exists")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// sqlState достаёт SQLSTATE из ошибки любого из двух драйверов
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return sqlState(err) == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return sqlState(err) == foreignKeyViolation
}
