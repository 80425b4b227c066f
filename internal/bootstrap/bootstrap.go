// Package bootstrap runs line-oriented command files against a vector
// store backend, pre-populating indexes or seed data before the pipeline
// starts.
//
// File format: one command per line; blank lines and lines starting with
// '#' are skipped. Tokens are split on whitespace, with double quotes
// grouping tokens that contain spaces. Commands are handed to the store's
// executor pre-tokenized and never pass through a shell.
package bootstrap

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spetr/docvec/pkg/provider"
	"github.com/spetr/docvec/pkg/types"
)

// Result summarizes one bootstrap run.
type Result struct {
	Executed int
	Failed   int
	Skipped  int // blank and comment lines
}

// Runner executes bootstrap command files.
type Runner struct {
	executor provider.CommandExecutor
	logger   *slog.Logger
}

// NewRunner creates a runner for the given store executor.
func NewRunner(executor provider.CommandExecutor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{executor: executor, logger: logger}
}

// Run executes every command in the file at path. A failing command is
// logged and counted; the remaining lines still run.
func (r *Runner) Run(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bootstrap file: %w", err)
	}
	defer f.Close()

	result := &Result{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			result.Skipped++
			continue
		}

		args, err := Tokenize(line)
		if err != nil {
			r.logger.Warn("bootstrap line rejected", "line", lineNo, "error", err)
			result.Failed++
			continue
		}

		if err := r.executor.Exec(ctx, args); err != nil {
			r.logger.Warn("bootstrap command failed", "line", lineNo, "command", args[0], "error", err)
			result.Failed++
			continue
		}

		r.logger.Debug("bootstrap command executed", "line", lineNo, "command", args[0])
		result.Executed++
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read bootstrap file: %w", err)
	}

	r.logger.Info("bootstrap complete",
		"file", path,
		"executed", result.Executed,
		"failed", result.Failed,
		"skipped", result.Skipped)
	return result, nil
}

// Tokenize splits one command line into arguments. Double quotes group
// whitespace into a single token; a quote ends at the next double quote.
// There is no escape syntax and no shell evaluation.
func Tokenize(line string) ([]string, error) {
	var args []string
	var sb strings.Builder
	inQuote := false
	hasToken := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasToken = true
		case !inQuote && (r == ' ' || r == '\t'):
			if hasToken {
				args = append(args, sb.String())
				sb.Reset()
				hasToken = false
			}
		default:
			sb.WriteRune(r)
			hasToken = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote", types.ErrInvalidArgument)
	}
	if hasToken {
		args = append(args, sb.String())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", types.ErrInvalidArgument)
	}
	return args, nil
}
