// Package llm wraps language-model invocation behind a small Client
// interface and provides the prompt plumbing for project planning and
// per-file code generation. Model invocation itself is a black box.
package llm

import (
	"context"
	"strings"
)

// Client produces a completion for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

func (f ClientFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// StripFences removes a surrounding markdown code fence from a model
// response, if present. Models add them despite instructions not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language tag like "json" or "python" on the fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first != "" && !strings.ContainsAny(first, "{}[]()") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
