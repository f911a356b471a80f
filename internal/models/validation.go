package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxNameBytes ограничение на имя мышцы/упражнения в байтах, чтобы влезать в callback data (64 байта)
const MaxNameBytes = 48

// maxWeight соответствует NUMERIC(5,2)
var maxWeight = decimal.RequireFromString("999.99")

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// NormalizeWeight заменяет десятичную запятую на точку ("2,5" -> "2.5")
func NormalizeWeight(s string) string {
	return strings.Replace(strings.TrimSpace(s), ",", ".", 1)
}

// ParseWeight разбирает вес из кнопки или текста в фиксированную точку с 2 знаками
func ParseWeight(s string) (decimal.Decimal, error) {
	normalized := NormalizeWeight(s)
	if normalized == "" {
		return decimal.Zero, ValidationError{Field: "weight", Message: "Weight is empty"}
	}
	// decimal понимает экспоненту ("1e2"), вес так не пишут
	if strings.ContainsAny(normalized, "eE") {
		return decimal.Zero, ValidationError{Field: "weight", Message: "Weight must be a number"}
	}
	w, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, ValidationError{Field: "weight", Message: "Weight must be a number"}
	}
	if w.IsNegative() {
		return decimal.Zero, ValidationError{Field: "weight", Message: "Weight can't be negative"}
	}
	w = w.Round(2)
	if w.GreaterThan(maxWeight) {
		return decimal.Zero, ValidationError{Field: "weight", Message: "Weight is too big"}
	}
	return w, nil
}

// ValidateReps validates repetitions count
func ValidateReps(reps int) error {
	if reps <= 0 {
		return ValidationError{Field: "reps", Message: "Reps must be positive"}
	}
	if reps > 999 {
		return ValidationError{Field: "reps", Message: "Too many reps"}
	}
	return nil
}

// ValidateSet validates set number
func ValidateSet(set int) error {
	if set <= 0 {
		return ValidationError{Field: "set", Message: "Set number must be positive"}
	}
	return nil
}

// ValidateName проверяет имя новой мышцы или упражнения и возвращает его без пробелов по краям
func ValidateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ValidationError{Field: field, Message: "Invalid name."}
	}
	if len(name) > MaxNameBytes {
		return "", ValidationError{Field: field, Message: "Name is too long."}
	}
	if strings.ContainsAny(name, "|\n") {
		return "", ValidationError{Field: field, Message: "Name can't contain '|' or line breaks."}
	}
	return name, nil
}
