// Package source fetches the raw tabular files an oracle is built from.
// It satisfies dataset.Source for local paths and HTTP(S) URLs and knows the
// locations of the bundled course datasets. Fetching is never retried: a
// failure is reported once and the oracle is not built.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds one HTTP fetch.
const DefaultTimeout = 30 * time.Second

// Resolve returns an HTTP source for http(s) URLs and a file source for
// everything else.
func Resolve(location string) Source {
	return ResolveWithClient(location, nil)
}

// ResolveWithClient is Resolve with the client used for HTTP locations.
func ResolveWithClient(location string, client *http.Client) Source {
	if isURL(location) {
		return NewHTTP(location, client)
	}
	return &File{Path: location}
}

func isURL(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// Source mirrors dataset.Source so callers need only this package to build
// one.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// File reads a local path.
type File struct {
	Path string
}

func (f *File) Name() string { return f.Path }

func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Path, err)
	}
	return fh, nil
}

// HTTP fetches a URL with GET.
type HTTP struct {
	URL    string
	client *http.Client
}

// NewHTTP creates an HTTP source; a nil client gets DefaultTimeout.
func NewHTTP(rawURL string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTP{URL: rawURL, client: client}
}

func (h *HTTP) Name() string { return h.URL }

func (h *HTTP) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", h.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s returned status %d: %s", h.URL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

// ============================================================================
// PROFILES — Bundled course datasets
// ============================================================================

// DefaultBaseURL hosts the bundled datasets.
const DefaultBaseURL = "https://raw.githubusercontent.com/msaricaumbc/DS_data/master/ds602/2025/"

// Profile names an aligned feature/outcome pair and its outcome column.
type Profile struct {
	Name          string
	BaseURL       string
	Features      string
	Outcome       string
	OutcomeColumn string
}

var profiles = map[string]Profile{
	"ecommerce": {
		Name:          "ecommerce",
		BaseURL:       DefaultBaseURL,
		Features:      "ecommerce_sessions_X.csv",
		Outcome:       "ecommerce_sessions_y.csv",
		OutcomeColumn: "will_purchase",
	},
	"streamflix": {
		Name:          "streamflix",
		BaseURL:       DefaultBaseURL,
		Features:      "streaming_churn_dataset.csv",
		Outcome:       "streaming_churn_dataset_y.csv",
		OutcomeColumn: "will_churn",
	},
}

// Lookup returns a bundled profile by name.
func Lookup(name string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Profiles lists the bundled profile names.
func Profiles() []string {
	return []string{"ecommerce", "streamflix"}
}

// FeaturesLocation joins the base with the feature file name.
func (p Profile) FeaturesLocation() string { return join(p.BaseURL, p.Features) }

// OutcomeLocation joins the base with the outcome file name.
func (p Profile) OutcomeLocation() string { return join(p.BaseURL, p.Outcome) }

// WithBase returns a copy reading from another base (a local directory or
// a mirror URL).
func (p Profile) WithBase(base string) Profile {
	p.BaseURL = base
	return p
}

func join(base, name string) string {
	if base == "" {
		return name
	}
	if isURL(base) {
		u, _ := url.Parse(base)
		u.Path = path.Join(u.Path, name)
		return u.String()
	}
	return filepath.Join(base, name)
}
