package actions

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/dvera/autopilot/pkg/schema"
)

const defaultCommandTimeout = 120 * time.Second

// SystemActions returns the OS process actions: run_command, open_vscode,
// open_app, open_path.
func SystemActions() []Action {
	return []Action{
		NewFunc("run_command", "Run a shell command and capture its output",
			func(ctx context.Context, req Request) (any, error) {
				command, err := stringArg(req.Args, "command")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				timeout := time.Duration(floatArgDefault(req.Args, "timeout_seconds",
					defaultCommandTimeout.Seconds()) * float64(time.Second))

				cmdCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				cmd := shellCommand(cmdCtx, command)
				var stdout, stderr bytes.Buffer
				cmd.Stdout = &stdout
				cmd.Stderr = &stderr

				runErr := cmd.Run()
				exitCode := 0
				if cmd.ProcessState != nil {
					exitCode = cmd.ProcessState.ExitCode()
				}

				output := strings.TrimSpace(stdout.String())
				if output == "" {
					output = strings.TrimSpace(stderr.String())
				}

				req.State.Put("last_command_exit_code", exitCode)
				req.State.Put("last_command_output", output)

				if cmdCtx.Err() == context.DeadlineExceeded {
					return nil, schema.NewErrorf(schema.ErrCodeExecution,
						"command timed out after %s", timeout)
				}
				if runErr != nil && cmd.ProcessState == nil {
					// Spawn failure, not a non-zero exit.
					return nil, schema.NewErrorf(schema.ErrCodeExecution,
						"command failed to start: %s", runErr.Error()).WithCause(runErr)
				}
				return output, nil
			}),
		NewFunc("open_vscode", "Open Visual Studio Code",
			func(ctx context.Context, req Request) (any, error) {
				if err := exec.Command("code").Start(); err != nil {
					return nil, schema.NewErrorf(schema.ErrCodeExecution, "open vscode: %s", err.Error()).WithCause(err)
				}
				return "Opened VS Code.", nil
			}),
		NewFunc("open_app", "Start an application command in the background",
			func(ctx context.Context, req Request) (any, error) {
				command, err := stringArg(req.Args, "command")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				if err := shellCommand(context.Background(), command).Start(); err != nil {
					return nil, schema.NewErrorf(schema.ErrCodeExecution, "start app: %s", err.Error()).WithCause(err)
				}
				return command, nil
			}),
		NewFunc("open_path", "Open a file or directory with the system handler",
			func(ctx context.Context, req Request) (any, error) {
				target, err := stringArg(req.Args, "path")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				if _, statErr := os.Stat(target); statErr != nil {
					return nil, schema.NewErrorf(schema.ErrCodeValidation, "path does not exist: %s", target)
				}
				if err := exec.Command(opener(), target).Start(); err != nil {
					return nil, schema.NewErrorf(schema.ErrCodeExecution, "open path: %s", err.Error()).WithCause(err)
				}
				return target, nil
			}),
	}
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

func opener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}
