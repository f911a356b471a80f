package presets

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	p := Default()

	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6}, p.Sets); diff != "" {
		t.Errorf("sets mismatch (-want +got):\n%s", diff)
	}
	if len(p.Reps) != 20 || p.Reps[0] != 1 || p.Reps[19] != 20 {
		t.Errorf("reps = %v, want 1..20", p.Reps)
	}
	if !p.HasWeight("2,5") {
		t.Error("default weights should keep the comma label 2,5")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", "sets: [1, 2]\nweights: [\"5\", \"7,5\", \"10\"]\nreps: [5, 10]\n", false},
		{"empty sets", "sets: []\nweights: [\"5\"]\nreps: [5]\n", true},
		{"duplicate set", "sets: [1, 1]\nweights: [\"5\"]\nreps: [5]\n", true},
		{"zero set", "sets: [0]\nweights: [\"5\"]\nreps: [5]\n", true},
		{"bad weight", "sets: [1]\nweights: [\"heavy\"]\nreps: [5]\n", true},
		{"descending weights", "sets: [1]\nweights: [\"10\", \"5\"]\nreps: [5]\n", true},
		{"zero reps", "sets: [1]\nweights: [\"5\"]\nreps: [0]\n", true},
		{"not yaml", "sets: [1\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemainingSets(t *testing.T) {
	p := &Presets{Sets: []int{1, 2, 3, 4, 5, 6}}

	tests := []struct {
		name      string
		completed []int
		want      []int
	}{
		{"none done", nil, []int{1, 2, 3, 4, 5, 6}},
		{"first done", []int{1}, []int{2, 3, 4, 5, 6}},
		{"gaps", []int{2, 5}, []int{1, 3, 4, 6}},
		{"all done", []int{1, 2, 3, 4, 5, 6}, nil},
		{"unknown numbers ignored", []int{9}, []int{1, 2, 3, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, p.RemainingSets(tt.completed)); diff != "" {
				t.Errorf("RemainingSets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), p); diff != "" {
		t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	if err := os.WriteFile(path, []byte("sets: [1]\nweights: [\"5\"]\nreps: [5]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	initial, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	holder := NewHolder(initial)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Watch(ctx, path, holder, log); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("sets: [1, 2, 3]\nweights: [\"5\"]\nreps: [5]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(holder.Get().Sets) == 3 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("sets after reload = %v, want 3 sets", holder.Get().Sets)
}
