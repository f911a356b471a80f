package models

// Muscle группа мышц. Глобальные видны всем, приватные только автору.
type Muscle struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsGlobal  bool   `json:"is_global"`
	CreatedBy *int64 `json:"created_by,omitempty"`
}

// Exercise упражнение внутри группы мышц
type Exercise struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	MuscleID    int     `json:"muscle"`
	IsGlobal    bool    `json:"is_global"`
	CreatedBy   *int64  `json:"created_by,omitempty"`
	MuscleGroup *Muscle `json:"muscle_group,omitempty"`
}

