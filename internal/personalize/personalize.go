// Package personalize decides how a muscle's exercise list is shown to a
// user: a compact list of their most frequent exercises, or the full catalog.
package personalize

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"gymbot/internal/models"
)

// TopLimit сколько упражнений попадает в компактный список
const TopLimit = 5

// Catalog видимые пользователю упражнения мышцы
type Catalog interface {
	ListExercises(ctx context.Context, muscle string, userID int64) ([]string, error)
}

// Ranker частота упражнений пользователя
type Ranker interface {
	TopExercises(ctx context.Context, userID int64, muscle string, limit int) ([]models.ExerciseFrequency, error)
}

// Mode режим показа списка упражнений
type Mode struct {
	Compact    bool
	Candidates []string
}

// List упорядоченный список упражнений. Compact означает, что показаны не все
// упражнения и стоит предложить кнопку "показать все".
type List struct {
	Names   []string
	Compact bool
}

// Engine решает, какие упражнения и в каком порядке показывать
type Engine struct {
	catalog Catalog
	ranker  Ranker
	log     *slog.Logger
}

func New(catalog Catalog, ranker Ranker, log *slog.Logger) *Engine {
	return &Engine{catalog: catalog, ranker: ranker, log: log}
}

// DisplayMode возвращает компактный режим с кандидатами, если у пользователя
// есть история по мышце. Ошибка ранжирования даёт полный режим.
func (e *Engine) DisplayMode(ctx context.Context, userID int64, muscle string) Mode {
	if userID == 0 {
		return Mode{}
	}
	top, err := e.ranker.TopExercises(ctx, userID, muscle, TopLimit)
	if err != nil {
		e.log.Warn("ranking failed, showing full catalog",
			"user_id", userID, "muscle", muscle, "error", err)
		return Mode{}
	}
	if len(top) == 0 {
		return Mode{}
	}

	candidates := make([]string, 0, len(top))
	for _, f := range top {
		candidates = append(candidates, f.Name)
	}
	return Mode{Compact: true, Candidates: candidates}
}

// OrderedExercises строит список упражнений мышцы.
// showAll=false: компактный режим даёт кандидатов по алфавиту, полный весь каталог.
// showAll=true: сначала частые упражнения по алфавиту, затем остальные в порядке каталога.
// Кандидаты, которых больше нет в видимом каталоге, отбрасываются.
func (e *Engine) OrderedExercises(ctx context.Context, muscle string, userID int64, showAll bool) (List, error) {
	catalog, err := e.catalog.ListExercises(ctx, muscle, userID)
	if err != nil {
		return List{}, fmt.Errorf("exercise catalog of %q: %w", muscle, err)
	}

	mode := e.DisplayMode(ctx, userID, muscle)
	top := visibleTop(mode.Candidates, catalog)

	if !showAll {
		if len(top) == 0 {
			return List{Names: catalog}, nil
		}
		return List{Names: top, Compact: true}, nil
	}

	names := make([]string, 0, len(catalog))
	names = append(names, top...)
	for _, name := range catalog {
		if !slices.Contains(top, name) {
			names = append(names, name)
		}
	}
	return List{Names: names}, nil
}

// visibleTop пересечение кандидатов с каталогом, по алфавиту и без повторов
func visibleTop(candidates, catalog []string) []string {
	var top []string
	for _, name := range candidates {
		if slices.Contains(catalog, name) && !slices.Contains(top, name) {
			top = append(top, name)
		}
	}
	slices.Sort(top)
	return top
}
