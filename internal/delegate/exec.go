package delegate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ExecInvoker runs the extractor binary as a subprocess, handing the task
// over stdin as JSON and reading the result from stdout. The context bounds
// the whole invocation; cancellation kills the process.
type ExecInvoker struct {
	// Path to the extractor binary.
	Path string

	// Extra environment passed to the process, on top of the parent's.
	Env []string
}

// Invoke implements Invoker.
func (e *ExecInvoker) Invoke(ctx context.Context, task Task) (Result, error) {
	if err := task.Validate(); err != nil {
		return Result{}, err
	}

	payload, err := EncodeTask(task)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, e.Path)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(), e.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("extractor process failed: %w (stderr: %s)", err, stderr.String())
	}

	return DecodeResult(stdout.Bytes())
}
