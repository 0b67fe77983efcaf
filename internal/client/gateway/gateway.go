// Package gateway is the single configured HTTP client the rest of the
// client goes through: base URL, bounded timeout, credential injection
// and response narrowing live here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"reportagua/internal/client/session"
)

// DefaultTimeout bounds every request; past it the call fails with
// ErrNetwork rather than hanging the caller.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNetwork covers timeouts and transport failures: no usable
	// response was obtained from the backend.
	ErrNetwork = errors.New("sin respuesta del servidor")
	// ErrUnauthorized is returned on 401 after the session store has
	// been cleared; the caller must fall back to the login surface.
	ErrUnauthorized = errors.New("sesion invalida o expirada")
)

// ValidationError is a 4xx rejection carrying the backend's structured
// field errors, surfaced verbatim to the actor.
type ValidationError struct {
	StatusCode int
	Fields     map[string][]string
	Detail     string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		for _, msg := range e.Fields[k] {
			if b.Len() > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s: %s", k, msg)
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("solicitud rechazada (%d)", e.StatusCode)
	}
	return b.String()
}

// First returns one field error to lead a notice with.
func (e *ValidationError) First() string {
	if e.Detail != "" {
		return e.Detail
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(e.Fields[k]) > 0 {
			return e.Fields[k][0]
		}
	}
	return e.Error()
}

// ServerError is a 5xx: try again later, nothing the actor can fix.
type ServerError struct{ StatusCode int }

func (e *ServerError) Error() string {
	return fmt.Sprintf("error del servidor (%d), intente mas tarde", e.StatusCode)
}

// Attachment is a binary part of a multipart request.
type Attachment struct {
	Field   string
	Name    string
	Content io.Reader
}

// Client is shared by every component; construct one per process.
type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store
}

func New(baseURL string, store session.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &bearerTransport{store: store, next: http.DefaultTransport},
		},
	}
}

// bearerTransport injects the stored access token into every outbound
// request. No token means the request goes out unauthenticated; the
// backend is the authority on access control.
type bearerTransport struct {
	store session.Store
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.store.AccessToken(); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return t.next.RoundTrip(req)
}

func (c *Client) url(path string) string { return c.baseURL + path }

// do runs the request and maps the response onto the error taxonomy.
// A 401 clears the session store before returning.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: tiempo de espera agotado", ErrNetwork)
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_ = c.store.Clear()
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		return &ServerError{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400:
		return decodeValidationError(resp)
	}
	if out == nil {
		return nil
	}
	if w, ok := out.(io.Writer); ok {
		_, err := io.Copy(w, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("respuesta con forma inesperada: %w", err)
	}
	return nil
}

// decodeValidationError narrows the assorted 4xx shapes the backend
// emits ({"detail": "..."} or {"campo": ["msg", ...]}).
func decodeValidationError(resp *http.Response) error {
	ve := &ValidationError{StatusCode: resp.StatusCode, Fields: map[string][]string{}}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ve
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ve
	}
	for field, msg := range raw {
		if field == "detail" {
			var s string
			if json.Unmarshal(msg, &s) == nil {
				ve.Detail = s
			}
			continue
		}
		var list []string
		if json.Unmarshal(msg, &list) == nil {
			ve.Fields[field] = list
			continue
		}
		var one string
		if json.Unmarshal(msg, &one) == nil {
			ve.Fields[field] = []string{one}
		}
	}
	return ve
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) patchJSON(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.url(path), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// multipartRequest builds a form with the given text fields plus
// attachments; photo-bearing payloads must go through here, never JSON.
func (c *Client) multipartRequest(ctx context.Context, method, path string, fields map[string]string, atts []Attachment) (*http.Request, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	for _, a := range atts {
		part, err := w.CreateFormFile(a.Field, a.Name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, a.Content); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}
