// Package coach talks to a generative model for motivational quotes,
// exercise tips and workout photo scans. Every call degrades to a fixed
// fallback or a single sentinel error; none blocks past its timeout.
package coach

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned by a Model that produced no text.
var ErrEmptyResponse = errors.New("model returned no text")

// Request is a single-turn generation request.
type Request struct {
	System string
	Prompt string

	// Image is sent inline when set.
	Image     []byte
	ImageMIME string

	// Search enables web-search grounding where the provider supports it.
	Search bool

	// Schema, when set, asks for JSON output matching it. The keys follow
	// the OpenAPI subset used by structured-output APIs.
	Schema map[string]any
}

// Source is a web page a grounded answer drew on.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type Response struct {
	Text    string
	Sources []Source
}

// Model generates text for a Request.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// stripFences removes a surrounding markdown code fence, which some models
// add around JSON even when asked not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
