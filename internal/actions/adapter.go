package actions

import (
	"context"

	"github.com/dvera/autopilot/internal/adapter"
	"github.com/dvera/autopilot/pkg/schema"
)

// AdapterActions exposes the adapter gateway to workflow steps. Every call
// goes through the manager's policy and confirmation machinery; steps never
// reach an adapter directly.
func AdapterActions(mgr *adapter.Manager) []Action {
	return []Action{
		NewFunc("adapter_list_actions", "List registered adapters and their action catalogs",
			func(ctx context.Context, req Request) (any, error) {
				return mgr.ListAdapters(), nil
			}),
		NewFunc("adapter_call", "Call an adapter action through the policy gateway",
			func(ctx context.Context, req Request) (any, error) {
				name, err := stringArg(req.Args, "adapter")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				action, err := stringArg(req.Args, "adapter_action")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				params, err := mapArg(req.Args, "params")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				confirmed := boolArgDefault(req.Args, "confirmed", false)
				return mgr.Call(ctx, name, action, params, confirmed)
			}),
		NewFunc("adapter_set_policy", "Change the sensitive-action policy profile",
			func(ctx context.Context, req Request) (any, error) {
				profile, err := stringArg(req.Args, "profile")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				parsed, err := mgr.SetPolicy(profile)
				if err != nil {
					return nil, err
				}
				req.State.Put("adapter_policy_profile", string(parsed))
				return string(parsed), nil
			}),
		NewFunc("adapter_prepare_sensitive", "Mint a single-use confirmation token for a sensitive action",
			func(ctx context.Context, req Request) (any, error) {
				name, err := stringArg(req.Args, "adapter")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				action, err := stringArg(req.Args, "adapter_action")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				params, err := mapArg(req.Args, "params")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				pending, err := mgr.PrepareSensitiveAction(name, action, params)
				if err != nil {
					return nil, err
				}
				summary := map[string]any{
					"token":      pending.Token,
					"adapter":    pending.Adapter,
					"action":     pending.Action,
					"expires_at": pending.ExpiresAt,
				}
				req.State.Put("last_sensitive_prepare", summary)
				return summary, nil
			}),
		NewFunc("adapter_confirm_sensitive", "Consume a confirmation token and execute the pending action",
			func(ctx context.Context, req Request) (any, error) {
				token, err := stringArg(req.Args, "token")
				if err != nil {
					return nil, schema.NewError(schema.ErrCodeValidation, err.Error())
				}
				if token == "" {
					return nil, schema.NewError(schema.ErrCodeValidation, "adapter_confirm_sensitive requires a non-empty 'token'")
				}
				return mgr.ConfirmSensitiveAction(ctx, token)
			}),
		NewFunc("adapter_get_telemetry", "Snapshot accumulated adapter action and selector metrics",
			func(ctx context.Context, req Request) (any, error) {
				return mgr.Telemetry(), nil
			}),
	}
}
