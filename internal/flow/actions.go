package flow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxCallbackData лимит Telegram на callback_data в байтах
const MaxCallbackData = 64

// Action действие пользователя, разобранное один раз на границе
type Action interface {
	isAction()
}

type (
	// Start вход в выбор мышцы (/start, /gym и кнопка "Record training")
	Start struct{}
	// Menu главное меню, сессия очищается
	Menu struct{}
	// EditMenu меню редактирования (/edit)
	EditMenu struct{}
	// EditToday список сегодняшних записей
	EditToday struct{}
	// EditRecord выбор записи для правки
	EditRecord struct{ ID string }

	MuscleSelected   struct{ Muscle string }
	ShowAll          struct{ Muscle string }
	ExerciseSelected struct{ Exercise string }
	SetChosen        struct{ Set int }
	// WeightChosen хранит подпись кнопки или введённый текст как есть ("2,5")
	WeightChosen struct{ Weight string }
	RepsChosen   struct{ Reps int }
	// ContinueExercise пустой Muscle означает мышцу из сессии
	ContinueExercise struct{ Muscle, Exercise string }

	BackToMuscles   struct{}
	BackToExercises struct{}
	BackToSets      struct{}

	AddMuscle      struct{}
	AddExercise    struct{}
	DeleteExercise struct{}
	DeleteChosen   struct{ Exercise string }

	// Text произвольный текст от пользователя
	Text struct{ Text string }
)

func (Start) isAction()            {}
func (Menu) isAction()             {}
func (EditMenu) isAction()         {}
func (EditToday) isAction()        {}
func (EditRecord) isAction()       {}
func (MuscleSelected) isAction()   {}
func (ShowAll) isAction()          {}
func (ExerciseSelected) isAction() {}
func (SetChosen) isAction()        {}
func (WeightChosen) isAction()     {}
func (RepsChosen) isAction()       {}
func (ContinueExercise) isAction() {}
func (BackToMuscles) isAction()    {}
func (BackToExercises) isAction()  {}
func (BackToSets) isAction()       {}
func (AddMuscle) isAction()        {}
func (AddExercise) isAction()      {}
func (DeleteExercise) isAction()   {}
func (DeleteChosen) isAction()     {}
func (Text) isAction()             {}

// ErrUnknownCallback callback_data не соответствует ни одному действию
var ErrUnknownCallback = errors.New("unknown callback data")

const (
	cbStart       = "gym"
	cbMenu        = "menu"
	cbEditMenu    = "edit"
	cbEditToday   = "edit_today"
	cbBackMuscles = "back:mus"
	cbBackExers   = "back:ex"
	cbBackSets    = "back:set"
	cbAddMuscle   = "add:mus"
	cbAddExercise = "add:ex"
	cbDeleteMode  = "del_mode"

	pfxRecord   = "rec:"
	pfxMuscle   = "mus:"
	pfxShowAll  = "all:"
	pfxExercise = "ex:"
	pfxSet      = "set:"
	pfxWeight   = "w:"
	pfxReps     = "r:"
	pfxContinue = "cont:"
	pfxDelete   = "del:"

	contSep = "|"
)

// Encode кодирует действие в callback_data. Возвращает "", если действие
// не кодируется или не влезает в лимит.
func Encode(a Action) string {
	data := encode(a)
	if len(data) > MaxCallbackData {
		return ""
	}
	return data
}

func encode(a Action) string {
	switch a := a.(type) {
	case Start:
		return cbStart
	case Menu:
		return cbMenu
	case EditMenu:
		return cbEditMenu
	case EditToday:
		return cbEditToday
	case EditRecord:
		return pfxRecord + a.ID
	case MuscleSelected:
		return pfxMuscle + a.Muscle
	case ShowAll:
		return pfxShowAll + a.Muscle
	case ExerciseSelected:
		return pfxExercise + a.Exercise
	case SetChosen:
		return pfxSet + strconv.Itoa(a.Set)
	case WeightChosen:
		return pfxWeight + a.Weight
	case RepsChosen:
		return pfxReps + strconv.Itoa(a.Reps)
	case ContinueExercise:
		data := pfxContinue + a.Muscle + contSep + a.Exercise
		if len(data) > MaxCallbackData {
			// мышцу восстановим из сессии
			data = pfxContinue + contSep + a.Exercise
		}
		return data
	case BackToMuscles:
		return cbBackMuscles
	case BackToExercises:
		return cbBackExers
	case BackToSets:
		return cbBackSets
	case AddMuscle:
		return cbAddMuscle
	case AddExercise:
		return cbAddExercise
	case DeleteExercise:
		return cbDeleteMode
	case DeleteChosen:
		return pfxDelete + a.Exercise
	}
	return ""
}

// ParseCallback разбирает callback_data в действие
func ParseCallback(data string) (Action, error) {
	switch data {
	case cbStart:
		return Start{}, nil
	case cbMenu:
		return Menu{}, nil
	case cbEditMenu:
		return EditMenu{}, nil
	case cbEditToday:
		return EditToday{}, nil
	case cbBackMuscles:
		return BackToMuscles{}, nil
	case cbBackExers:
		return BackToExercises{}, nil
	case cbBackSets:
		return BackToSets{}, nil
	case cbAddMuscle:
		return AddMuscle{}, nil
	case cbAddExercise:
		return AddExercise{}, nil
	case cbDeleteMode:
		return DeleteExercise{}, nil
	}

	prefix, value, ok := splitPrefix(data)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
	}

	switch prefix {
	case pfxRecord:
		return EditRecord{ID: value}, nil
	case pfxMuscle:
		return MuscleSelected{Muscle: value}, nil
	case pfxShowAll:
		return ShowAll{Muscle: value}, nil
	case pfxExercise:
		return ExerciseSelected{Exercise: value}, nil
	case pfxWeight:
		return WeightChosen{Weight: value}, nil
	case pfxDelete:
		return DeleteChosen{Exercise: value}, nil
	case pfxSet:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: bad set %q", ErrUnknownCallback, value)
		}
		return SetChosen{Set: n}, nil
	case pfxReps:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: bad reps %q", ErrUnknownCallback, value)
		}
		return RepsChosen{Reps: n}, nil
	case pfxContinue:
		muscle, exercise, found := strings.Cut(value, contSep)
		if !found || exercise == "" {
			return nil, fmt.Errorf("%w: bad continue payload %q", ErrUnknownCallback, value)
		}
		return ContinueExercise{Muscle: muscle, Exercise: exercise}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
}

var prefixes = []string{
	pfxRecord, pfxMuscle, pfxShowAll, pfxExercise, pfxSet,
	pfxWeight, pfxReps, pfxContinue, pfxDelete,
}

func splitPrefix(data string) (prefix, value string, ok bool) {
	for _, p := range prefixes {
		if v, found := strings.CutPrefix(data, p); found {
			return p, v, true
		}
	}
	return "", "", false
}

// ParseCommand разбирает имя команды без слэша и упоминания бота
func ParseCommand(command string) (Action, bool) {
	switch command {
	case "start", "gym":
		return Start{}, true
	case "edit":
		return EditMenu{}, true
	}
	return nil, false
}
