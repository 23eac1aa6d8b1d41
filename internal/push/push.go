// Package push delivers best-effort out-of-band notifications to registered
// device tokens. Partial failure never surfaces as an error to callers; each
// token gets its own result.
package push

import "context"

type Result struct {
	Token string
	OK    bool
	Err   error
}

type Gateway interface {
	// Notify never returns an error for per-token failures; inspect results.
	Notify(ctx context.Context, tokens []string, title, body string, data map[string]string) []Result
}

// Noop drops every notification, reporting success. Used when no gateway is
// configured and in tests.
type Noop struct{}

func (Noop) Notify(_ context.Context, tokens []string, _, _ string, _ map[string]string) []Result {
	out := make([]Result, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, Result{Token: t, OK: true})
	}
	return out
}
