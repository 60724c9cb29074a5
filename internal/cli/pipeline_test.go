package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"p3fes-translator/internal/filewalker"
	"p3fes-translator/internal/report"
	"p3fes-translator/internal/worker"
)

func TestResolveOutcome(t *testing.T) {
	t.Parallel()

	entry := filewalker.Entry{Path: "/game/field/event.pm1", Ext: ".pm1"}
	taskErr := errors.New("boom")

	tests := []struct {
		name        string
		task        worker.Task[filewalker.Entry, report.Outcome]
		wantPath    string
		wantSkipped string
		wantErr     error
	}{
		{
			name:        "never dispatched counts as skipped",
			task:        worker.Task[filewalker.Entry, report.Outcome]{},
			wantPath:    entry.Path,
			wantSkipped: "cancelled before dispatch",
		},
		{
			name: "processed outcome passes through",
			task: worker.Task[filewalker.Entry, report.Outcome]{
				Result: report.Outcome{Path: entry.Path, Translated: 3},
			},
			wantPath: entry.Path,
		},
		{
			name: "task error propagates without a skip reason",
			task: worker.Task[filewalker.Entry, report.Outcome]{
				Err: taskErr,
			},
			wantPath: entry.Path,
			wantErr:  taskErr,
		},
		{
			name: "outcome error wins over task error",
			task: worker.Task[filewalker.Entry, report.Outcome]{
				Result: report.Outcome{Path: entry.Path, Err: taskErr},
				Err:    errors.New("other"),
			},
			wantPath: entry.Path,
			wantErr:  taskErr,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := resolveOutcome(entry, tt.task)
			if o.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", o.Path, tt.wantPath)
			}
			if o.Skipped != tt.wantSkipped {
				t.Errorf("Skipped = %q, want %q", o.Skipped, tt.wantSkipped)
			}
			if !errors.Is(o.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", o.Err, tt.wantErr)
			}
		})
	}
}

func TestMirrorPath(t *testing.T) {
	t.Parallel()

	p := &pipeline{root: filepath.FromSlash("/game"), outputDir: filepath.FromSlash("/out")}

	got := p.mirrorPath(filepath.FromSlash("/game/field/event.pm1"))
	want := filepath.FromSlash("/out/field/event.pm1")
	if got != want {
		t.Errorf("mirrorPath = %q, want %q", got, want)
	}

	// Paths outside the root keep their position relative to it.
	got = p.mirrorPath(filepath.FromSlash("/elsewhere/event.pm1"))
	want = filepath.Join(filepath.FromSlash("/out"), "..", "elsewhere", "event.pm1")
	if got != want {
		t.Errorf("mirrorPath outside root = %q, want %q", got, want)
	}

	empty := &pipeline{root: filepath.FromSlash("/game")}
	if got := empty.mirrorPath(filepath.FromSlash("/game/event.pm1")); got != "" {
		t.Errorf("mirrorPath with no output dir = %q, want empty", got)
	}
}
