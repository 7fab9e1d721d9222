package actions

import (
	"context"
	"strings"
	"time"

	"github.com/dvera/autopilot/pkg/schema"
)

const defaultLocatorTimeout = 10 * time.Second

// Browser is the browser-control collaborator. A concrete implementation
// drives a real browser session; the engine only depends on this boundary.
type Browser interface {
	Goto(ctx context.Context, url string) (string, error)
	Search(ctx context.Context, query string) (string, error)
	Fill(ctx context.Context, selector, text string, timeout time.Duration) (string, error)
	Click(ctx context.Context, selector string, timeout time.Duration) (string, error)
	Press(ctx context.Context, key string) (string, error)
	ReadText(ctx context.Context, selector string, timeout time.Duration) (string, error)
	ReadConsoleErrors(ctx context.Context) ([]string, error)
	ModeStatus(ctx context.Context) (map[string]any, error)
}

// BrowserActions returns the browser-bound action set. With a nil browser the
// actions register but fail at execution time.
func BrowserActions(b Browser) []Action {
	require := func() (Browser, error) {
		if b == nil {
			return nil, schema.NewError(schema.ErrCodeExecution, "no browser collaborator configured")
		}
		return b, nil
	}

	return []Action{
		NewFunc("open_url", "Navigate the browser to a URL",
			func(ctx context.Context, req Request) (any, error) {
				browser, err := require()
				if err != nil {
					return nil, err
				}
				url, err := stringArg(req.Args, "url")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				return browser.Goto(ctx, url)
			}),
		NewFunc("search_google", "Run a Google search in the browser",
			func(ctx context.Context, req Request) (any, error) {
				browser, err := require()
				if err != nil {
					return nil, err
				}
				query, err := stringArg(req.Args, "query")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				return browser.Search(ctx, query)
			}),
		NewFunc("browser_fill", "Fill a form field identified by a selector",
			func(ctx context.Context, req Request) (any, error) {
				browser, err := require()
				if err != nil {
					return nil, err
				}
				selector, err := stringArg(req.Args, "selector")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				text, err := stringArg(req.Args, "text")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				return browser.Fill(ctx, selector, text, locatorTimeout(req.Args))
			}),
		NewFunc("browser_click", "Click an element identified by a selector",
			func(ctx context.Context, req Request) (any, error) {
				browser, err := require()
				if err != nil {
					return nil, err
				}
				selector, err := stringArg(req.Args, "selector")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				return browser.Click(ctx, selector, locatorTimeout(req.Args))
			}),
		NewFunc("browser_press", "Send a keyboard key to the page",
			func(ctx context.Context, req Request) (any, error) {
				browser, err := require()
				if err != nil {
					return nil, err
				}
				key, err := stringArg(req.Args, "key")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				return browser.Press(ctx, key)
			}),
		NewFunc("browser_read_text", "Read the text content of an element",
			func(ctx context.Context, req Request) (any, error) {
				browser, err := require()
				if err != nil {
					return nil, err
				}
				selector, err := stringArg(req.Args, "selector")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				return browser.ReadText(ctx, selector, locatorTimeout(req.Args))
			}),
		NewFunc("browser_read_console_errors", "Collect console-like error entries from the page",
			func(ctx context.Context, req Request) (any, error) {
				browser, err := require()
				if err != nil {
					return nil, err
				}
				errorsList, err := browser.ReadConsoleErrors(ctx)
				if err != nil {
					return nil, err
				}
				return strings.Join(errorsList, "\n"), nil
			}),
		NewFunc("browser_mode_status", "Report the browser session mode",
			func(ctx context.Context, req Request) (any, error) {
				browser, err := require()
				if err != nil {
					return nil, err
				}
				return browser.ModeStatus(ctx)
			}),
	}
}

func locatorTimeout(args map[string]any) time.Duration {
	ms := intArgDefault(args, "timeout_ms", int(defaultLocatorTimeout/time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}
