package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPGateway posts one JSON notification per token to a relay endpoint
// (FCM-style legacy API shape). Timeouts and non-2xx responses mark the token
// failed and move on.
type HTTPGateway struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPGateway(endpoint, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

var _ Gateway = (*HTTPGateway)(nil)

type notifyPayload struct {
	To           string            `json:"to"`
	Notification notifyBody        `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type notifyBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (g *HTTPGateway) Notify(ctx context.Context, tokens []string, title, body string, data map[string]string) []Result {
	results := make([]Result, 0, len(tokens))
	for _, token := range tokens {
		err := g.send(ctx, token, title, body, data)
		if err != nil {
			slog.Warn("push delivery failed", "error", err)
		}
		results = append(results, Result{Token: token, OK: err == nil, Err: err})
	}
	return results
}

func (g *HTTPGateway) send(ctx context.Context, token, title, body string, data map[string]string) error {
	payload, err := json.Marshal(notifyPayload{
		To:           token,
		Notification: notifyBody{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "key="+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned %s", resp.Status)
	}
	return nil
}
