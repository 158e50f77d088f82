package source

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result captures one finished pwsh invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a command and reports its output and exit code. A non-nil
// error means the command never ran (spawn failure or cancellation); a
// non-zero exit comes back in Result with a nil error.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
