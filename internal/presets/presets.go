// Package presets holds the fixed button ladders (set numbers, weights, reps)
// the bot offers. They are configuration data: an embedded default can be
// replaced by a YAML file, which is re-read whenever it changes on disk.
package presets

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync/atomic"

	"gymbot/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultYAML []byte

// Presets набор фиксированных значений для кнопок
type Presets struct {
	Sets    []int    `yaml:"sets" json:"sets"`
	Weights []string `yaml:"weights" json:"weights"`
	Reps    []int    `yaml:"reps" json:"reps"`
}

// Default возвращает встроенный набор
func Default() *Presets {
	p, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("presets: embedded defaults are invalid: %v", err))
	}
	return p
}

// Parse разбирает и проверяет YAML
func Parse(data []byte) (*Presets, error) {
	p := &Presets{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing presets: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("presets validation: %w", err)
	}
	return p, nil
}

// Load читает файл; пустой путь означает встроенные значения
func Load(path string) (*Presets, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets file: %w", err)
	}
	return Parse(data)
}

func (p *Presets) validate() error {
	if len(p.Sets) == 0 || len(p.Weights) == 0 || len(p.Reps) == 0 {
		return fmt.Errorf("sets, weights and reps must all be non-empty")
	}
	seen := make(map[int]bool, len(p.Sets))
	for _, s := range p.Sets {
		if err := models.ValidateSet(s); err != nil {
			return fmt.Errorf("set %d: %w", s, err)
		}
		if seen[s] {
			return fmt.Errorf("set %d is listed twice", s)
		}
		seen[s] = true
	}
	prev := ""
	for _, w := range p.Weights {
		cur, err := models.ParseWeight(w)
		if err != nil {
			return fmt.Errorf("weight %q: %w", w, err)
		}
		if prev != "" {
			last, _ := models.ParseWeight(prev)
			if !cur.GreaterThan(last) {
				return fmt.Errorf("weights must ascend: %q after %q", w, prev)
			}
		}
		prev = w
	}
	for _, r := range p.Reps {
		if err := models.ValidateReps(r); err != nil {
			return fmt.Errorf("reps %d: %w", r, err)
		}
	}
	return nil
}

// RemainingSets возвращает номера подходов, которых нет среди completed, в порядке пресета
func (p *Presets) RemainingSets(completed []int) []int {
	var remaining []int
	for _, s := range p.Sets {
		if !slices.Contains(completed, s) {
			remaining = append(remaining, s)
		}
	}
	return remaining
}

// HasWeight reports whether label is one of the ladder weights.
func (p *Presets) HasWeight(label string) bool {
	return slices.Contains(p.Weights, label)
}

// Holder отдаёт текущий набор и позволяет подменить его на лету
type Holder struct {
	current atomic.Pointer[Presets]
}

// NewHolder создаёт Holder с начальным набором
func NewHolder(p *Presets) *Holder {
	h := &Holder{}
	h.current.Store(p)
	return h
}

// Get returns the active presets.
func (h *Holder) Get() *Presets {
	return h.current.Load()
}

// Set replaces the active presets.
func (h *Holder) Set(p *Presets) {
	h.current.Store(p)
}
