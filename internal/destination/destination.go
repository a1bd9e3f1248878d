// Package destination shapes canonical events into provider payloads and
// performs the outbound calls. Adapters never return Go errors: every
// provider failure (network, non-2xx, timeout) is captured into the
// DispatchResult so siblings and persistence are unaffected.
package destination

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
)

// Adapter is one analytics provider. Implementations are safe for
// concurrent use; Send carries its own timeout via the injected client.
type Adapter interface {
	Name() domain.Destination
	Send(ctx context.Context, ev domain.Event, rc *domain.RequestContext) domain.DispatchResult
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends the payload and returns the decoded response body (nil for
// empty bodies). Non-2xx responses come back as a DispatchError carrying
// the provider's status code.
func postJSON(ctx context.Context, client *http.Client, url string, payload any, header http.Header) (any, *domain.DispatchError) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.DispatchError{Message: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.DispatchError{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.DispatchError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.DispatchError{
			Message:    fmt.Sprintf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			StatusCode: resp.StatusCode,
		}
	}

	if len(raw) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// non-JSON 2xx body; keep it as text
		return strings.TrimSpace(string(raw)), nil
	}
	return decoded, nil
}

// snakeCase normalizes an event name to lower snake case ("Test Event" and
// "testEvent" both become "test_event").
func snakeCase(name string) string {
	var b strings.Builder
	prevUnderscore := false
	for i, r := range name {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
		case r == ' ' || r == '-' || r == '_':
			if !prevUnderscore && i > 0 {
				b.WriteByte('_')
			}
			prevUnderscore = true
		default:
			b.WriteRune(r)
			prevUnderscore = false
		}
	}
	return strings.Trim(b.String(), "_")
}

// titleCase converts an event name to the Conversions API convention
// ("test_event" becomes "Test Event").
func titleCase(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
