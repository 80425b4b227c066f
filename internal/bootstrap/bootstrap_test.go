package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// recordingExecutor captures every command it receives and can fail
// selected ones.
type recordingExecutor struct {
	commands [][]string
	failOn   string // fail any command whose first token matches
}

func (e *recordingExecutor) Exec(ctx context.Context, args []string) error {
	e.commands = append(e.commands, args)
	if e.failOn != "" && args[0] == e.failOn {
		return errors.New("command rejected")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bootstrap.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{
			name: "plain tokens",
			line: "FT.CREATE idx ON HASH",
			want: []string{"FT.CREATE", "idx", "ON", "HASH"},
		},
		{
			name: "quoted token with spaces",
			line: `SET greeting "hello world"`,
			want: []string{"SET", "greeting", "hello world"},
		},
		{
			name: "quotes adjacent to text",
			line: `SET key prefix"middle part"suffix`,
			want: []string{"SET", "key", "prefixmiddle partsuffix"},
		},
		{
			name: "empty quoted token",
			line: `SET key ""`,
			want: []string{"SET", "key", ""},
		},
		{
			name: "tabs as separators",
			line: "DEL\tkey1\tkey2",
			want: []string{"DEL", "key1", "key2"},
		},
		{
			name:    "unterminated quote",
			line:    `SET key "unclosed`,
			wantErr: true,
		},
		{
			name:    "only whitespace",
			line:    "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Tokenize(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestRunSkipsBlanksAndComments(t *testing.T) {
	path := writeFile(t, `# provision the search index
FT.CREATE embeddings_idx ON HASH PREFIX 1 doc:

# seed a probe key
SET probe "ready marker"
`)

	exec := &recordingExecutor{}
	result, err := NewRunner(exec, nil).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Executed != 2 {
		t.Errorf("executed = %d, want 2", result.Executed)
	}
	if result.Failed != 0 {
		t.Errorf("failed = %d, want 0", result.Failed)
	}
	if len(exec.commands) != 2 {
		t.Fatalf("executor received %d commands, want 2", len(exec.commands))
	}
	if exec.commands[0][0] != "FT.CREATE" {
		t.Errorf("first command = %q", exec.commands[0][0])
	}
	want := []string{"SET", "probe", "ready marker"}
	if !reflect.DeepEqual(exec.commands[1], want) {
		t.Errorf("second command = %q, want %q", exec.commands[1], want)
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	path := writeFile(t, `BAD first
GOOD second
BAD third
GOOD fourth
`)

	exec := &recordingExecutor{failOn: "BAD"}
	result, err := NewRunner(exec, nil).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Executed != 2 {
		t.Errorf("executed = %d, want 2", result.Executed)
	}
	if result.Failed != 2 {
		t.Errorf("failed = %d, want 2", result.Failed)
	}
	if len(exec.commands) != 4 {
		t.Errorf("executor received %d commands, want all 4", len(exec.commands))
	}
}

func TestRunCountsBadSyntaxAsFailed(t *testing.T) {
	path := writeFile(t, `SET key "unterminated
GOOD after
`)

	exec := &recordingExecutor{}
	result, err := NewRunner(exec, nil).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if result.Executed != 1 {
		t.Errorf("executed = %d, want 1", result.Executed)
	}
}

func TestRunMissingFile(t *testing.T) {
	_, err := NewRunner(&recordingExecutor{}, nil).Run(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Error("Run() with missing file should fail")
	}
}
