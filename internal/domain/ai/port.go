package ai

import "context"

// Summarizer produces a short human-readable verdict for a stored analysis
// report, addressed by its public URL.
type Summarizer interface {
	Summarize(ctx context.Context, reportURL string) (string, error)
}
