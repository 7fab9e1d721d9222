package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/dvera/autopilot/pkg/schema"
)

// Desktop is the keyboard/mouse injection collaborator. Implementations
// require an interactive desktop session and live outside this module.
type Desktop interface {
	Type(ctx context.Context, text string, interval time.Duration) error
	Hotkey(ctx context.Context, keys ...string) error
	Click(ctx context.Context, x, y int, button string) error
	Move(ctx context.Context, x, y int, duration time.Duration) error
	Press(ctx context.Context, key string) error
	SwitchWindow(ctx context.Context) error
}

// DesktopActions returns the desktop input-injection action set. With a nil
// collaborator the actions register but fail at execution time, mirroring
// how the capability is optional at install time.
func DesktopActions(d Desktop) []Action {
	require := func() (Desktop, error) {
		if d == nil {
			return nil, schema.NewError(schema.ErrCodeExecution, "no desktop automation collaborator configured")
		}
		return d, nil
	}

	return []Action{
		NewFunc("desktop_type", "Type text through desktop keyboard injection",
			func(ctx context.Context, req Request) (any, error) {
				desktop, err := require()
				if err != nil {
					return nil, err
				}
				text := stringArgDefault(req.Args, "text", "")
				interval := time.Duration(floatArgDefault(req.Args, "interval", 0.02) * float64(time.Second))
				if err := desktop.Type(ctx, text, interval); err != nil {
					return nil, err
				}
				return text, nil
			}),
		NewFunc("desktop_hotkey", "Send a hotkey combination",
			func(ctx context.Context, req Request) (any, error) {
				desktop, err := require()
				if err != nil {
					return nil, err
				}
				raw, ok := req.Args["keys"].([]any)
				if !ok || len(raw) == 0 {
					return nil, schema.NewError(schema.ErrCodeValidation, "desktop_hotkey requires a non-empty 'keys' list")
				}
				keys := make([]string, len(raw))
				for i, k := range raw {
					if s, ok := k.(string); ok {
						keys[i] = s
					} else {
						keys[i] = fmt.Sprintf("%v", k)
					}
				}
				if err := desktop.Hotkey(ctx, keys...); err != nil {
					return nil, err
				}
				return keys, nil
			}),
		NewFunc("desktop_click", "Click at absolute screen coordinates",
			func(ctx context.Context, req Request) (any, error) {
				desktop, err := require()
				if err != nil {
					return nil, err
				}
				if _, ok := req.Args["x"]; !ok {
					return nil, schema.NewError(schema.ErrCodeValidation, "desktop_click requires 'x' and 'y'")
				}
				if _, ok := req.Args["y"]; !ok {
					return nil, schema.NewError(schema.ErrCodeValidation, "desktop_click requires 'x' and 'y'")
				}
				xi := intArgDefault(req.Args, "x", 0)
				yi := intArgDefault(req.Args, "y", 0)
				button := stringArgDefault(req.Args, "button", "left")
				if err := desktop.Click(ctx, xi, yi, button); err != nil {
					return nil, err
				}
				return map[string]any{"x": xi, "y": yi, "button": button}, nil
			}),
		NewFunc("desktop_move", "Move the cursor to absolute screen coordinates",
			func(ctx context.Context, req Request) (any, error) {
				desktop, err := require()
				if err != nil {
					return nil, err
				}
				if _, ok := req.Args["x"]; !ok {
					return nil, schema.NewError(schema.ErrCodeValidation, "desktop_move requires 'x' and 'y'")
				}
				if _, ok := req.Args["y"]; !ok {
					return nil, schema.NewError(schema.ErrCodeValidation, "desktop_move requires 'x' and 'y'")
				}
				xi := intArgDefault(req.Args, "x", 0)
				yi := intArgDefault(req.Args, "y", 0)
				duration := time.Duration(floatArgDefault(req.Args, "duration", 0.2) * float64(time.Second))
				if err := desktop.Move(ctx, xi, yi, duration); err != nil {
					return nil, err
				}
				return map[string]any{"x": xi, "y": yi}, nil
			}),
		NewFunc("desktop_press", "Press a single desktop key",
			func(ctx context.Context, req Request) (any, error) {
				desktop, err := require()
				if err != nil {
					return nil, err
				}
				key := stringArgDefault(req.Args, "key", "enter")
				if err := desktop.Press(ctx, key); err != nil {
					return nil, err
				}
				return key, nil
			}),
		NewFunc("desktop_switch_window", "Switch to the next window",
			func(ctx context.Context, req Request) (any, error) {
				desktop, err := require()
				if err != nil {
					return nil, err
				}
				if err := desktop.SwitchWindow(ctx); err != nil {
					return nil, err
				}
				return "alt+tab", nil
			}),
	}
}
