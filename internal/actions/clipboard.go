package actions

import (
	"context"

	"github.com/atotto/clipboard"

	"github.com/dvera/autopilot/pkg/schema"
)

// Clipboard is the system clipboard collaborator.
type Clipboard interface {
	Get() (string, error)
	Set(text string) error
}

// SystemClipboard is the default Clipboard backed by the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Get() (string, error) {
	return clipboard.ReadAll()
}

func (SystemClipboard) Set(text string) error {
	return clipboard.WriteAll(text)
}

// ClipboardActions returns clipboard_get and clipboard_set.
func ClipboardActions(cb Clipboard) []Action {
	return []Action{
		NewFunc("clipboard_get", "Read the system clipboard",
			func(ctx context.Context, req Request) (any, error) {
				text, err := cb.Get()
				if err != nil {
					return nil, schema.NewErrorf(schema.ErrCodeExecution, "read clipboard: %s", err.Error()).WithCause(err)
				}
				return text, nil
			}),
		NewFunc("clipboard_set", "Write text to the system clipboard",
			func(ctx context.Context, req Request) (any, error) {
				text := stringArgDefault(req.Args, "text", "")
				if err := cb.Set(text); err != nil {
					return nil, schema.NewErrorf(schema.ErrCodeExecution, "write clipboard: %s", err.Error()).WithCause(err)
				}
				return text, nil
			}),
	}
}
