// Package runner invokes external command-line tools with a timeout and
// manages the scratch files they read and write.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner executes external tools.
type Runner struct {
	// Timeout bounds every invocation. Zero means no timeout.
	Timeout time.Duration

	logger *zap.Logger
}

// New creates a runner with the given per-invocation timeout.
func New(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout, logger: zap.NewNop()}
}

// SetLogger sets the logger for invocation messages.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// ToolError describes a failed tool invocation.
type ToolError struct {
	Tool   string
	Args   []string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Run executes exe with args and waits for it to finish. Stdout is
// discarded; stderr is kept for the error message.
func (r *Runner) Run(ctx context.Context, exe string, args ...string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stderr = &stderr
	// Children of a killed tool may keep stderr open.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("tool finished",
		zap.String("tool", exe),
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", r.Timeout, ctx.Err())
		}
		return &ToolError{Tool: exe, Args: args, Err: err, Stderr: stderr.String()}
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
