package actions

import (
	"context"
	"log/slog"
	"time"

	"github.com/dvera/autopilot/internal/adapter"
	"github.com/dvera/autopilot/pkg/schema"
)

// Deps holds the external collaborators the built-in action set is wired to.
// Browser and Desktop may be nil; their actions then fail with an execution
// error explaining the capability is unavailable.
type Deps struct {
	Browser   Browser
	Desktop   Desktop
	Clipboard Clipboard
	Adapters  *adapter.Manager
	Logger    *slog.Logger
}

// RegisterBuiltins registers the full engine action namespace in the given
// registry.
func RegisterBuiltins(reg *Registry, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = SystemClipboard{}
	}

	all := make([]Action, 0, 32)
	all = append(all, coreActions(deps.Logger)...)
	all = append(all, BrowserActions(deps.Browser)...)
	all = append(all, SystemActions()...)
	all = append(all, ClipboardActions(deps.Clipboard)...)
	all = append(all, DesktopActions(deps.Desktop)...)
	if deps.Adapters != nil {
		all = append(all, AdapterActions(deps.Adapters)...)
	}

	for _, a := range all {
		if err := reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// coreActions are the collaborator-free actions: wait and log.
func coreActions(logger *slog.Logger) []Action {
	return []Action{
		NewFunc("wait", "Pause execution for a number of seconds",
			func(ctx context.Context, req Request) (any, error) {
				seconds := floatArgDefault(req.Args, "seconds", 1)
				if seconds < 0 {
					return nil, schema.NewError(schema.ErrCodeValidation, "wait requires seconds >= 0")
				}
				select {
				case <-time.After(time.Duration(seconds * float64(time.Second))):
					return seconds, nil
				case <-ctx.Done():
					return nil, schema.NewError(schema.ErrCodeCancelled, "wait interrupted").WithCause(ctx.Err())
				}
			}),
		NewFunc("log", "Write a message to the run log",
			func(ctx context.Context, req Request) (any, error) {
				message := stringArgDefault(req.Args, "message", "")
				logger.InfoContext(ctx, message)
				return message, nil
			}),
	}
}
