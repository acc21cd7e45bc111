// Package generation produces the personalized content a template is filled
// with: one generation slot per content need, run concurrently against an
// injected text generator, each with a documented default on failure.
package generation

import (
	"context"
	"strings"
)

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CannedResponse is returned by StubGenerator when Keyword appears in the
// first line of a prompt.
type CannedResponse struct {
	Keyword string
	Text    string
}

// StubGenerator answers prompts with canned text chosen by keyword. It stands
// in for a language model and is deterministic.
type StubGenerator struct {
	Responses []CannedResponse
	Fallback  string
}

// NewStubGenerator returns a stub with responses for every slot the pipeline
// declares.
func NewStubGenerator() *StubGenerator {
	return &StubGenerator{
		Responses: []CannedResponse{
			{"image keywords", "professional, modern, welcoming"},
			{"headline", "Welcome to a place you will love"},
			{"tagline", "Quality you can count on, every day"},
			{"about", "We started with a simple idea: do honest work and treat every customer like a neighbour. Years later that idea still guides everything we do."},
			{"features", "Experienced team\nFair prices\nPersonal attention\nTrusted by the community"},
			{"service title", "Signature service"},
			{"service description", "Carefully delivered by our team with attention to every detail."},
			{"testimonial", "Outstanding experience from start to finish. Highly recommended!"},
			{"primary call to action", "Get in touch"},
			{"secondary call to action", "Learn more"},
			{"description", "A trusted local business dedicated to quality and friendly service."},
		},
		Fallback: "Generated content",
	}
}

// Generate matches the prompt's first line against the canned keywords in order.
func (s *StubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	task := strings.ToLower(firstLine(prompt))
	for _, r := range s.Responses {
		if strings.Contains(task, r.Keyword) {
			return r.Text, nil
		}
	}
	return s.Fallback, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
