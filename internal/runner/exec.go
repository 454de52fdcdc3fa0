package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
)

// CommandExecutor runs one step command and reports its combined output
// and exit code. This abstraction allows mocking execution in tests.
type CommandExecutor interface {
	Run(ctx context.Context, workdir, command string, env map[string]string) (output []byte, exitCode int, err error)
}

// ShellExecutor implements CommandExecutor through "sh -c".
type ShellExecutor struct{}

// NewShellExecutor creates a ShellExecutor.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

// Run executes a shell command and returns combined stdout/stderr.
// A non-zero exit is reported via exitCode, not err; err covers failures
// to start the process at all.
func (e *ShellExecutor) Run(ctx context.Context, workdir, command string, env map[string]string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if workdir != "" {
		cmd.Dir = workdir
	}
	if len(env) > 0 {
		environ := os.Environ()
		for k, v := range env {
			environ = append(environ, k+"="+v)
		}
		cmd.Env = environ
	}

	output, err := cmd.CombinedOutput()
	if err == nil {
		return output, 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return output, exitErr.ExitCode(), nil
	}
	return output, -1, err
}

// Verify ShellExecutor implements CommandExecutor at compile time.
var _ CommandExecutor = (*ShellExecutor)(nil)
