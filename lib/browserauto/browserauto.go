// Package browserauto is the narrow interface the scraping core uses when a
// source requires client-side script execution. The state machine and
// classification logic upstream are unchanged whether a document was
// server-rendered or came out of this engine.
package browserauto

import (
	"context"
	"net/http"
)

// Engine is the rendering capability: navigate, inspect, interact, inject.
type Engine interface {
	Navigate(ctx context.Context, url string) error
	// HTML serializes the current DOM after script execution.
	HTML(ctx context.Context) (string, error)
	URL() string
	Has(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
	// Type fills an element and optionally submits with Enter.
	Type(ctx context.Context, selector, text string, submit bool) error
	Text(ctx context.Context, selector string) (string, error)
	RunScript(ctx context.Context, js string) error
	// Frame scopes the engine to a named iframe; interactions through the
	// returned engine happen inside it.
	Frame(ctx context.Context, name string) (Engine, error)
	// Cookies exports the session cookies accumulated by the browser,
	// so a plain HTTP client can continue the authenticated session.
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	Close() error
}
