// Package transcriber generates word-timed transcripts for audio files.
package transcriber

import "context"

// Generator writes a transcript for audioPath to transcriptPath. Implementations may be
// slow; callers pass a context to bound them.
type Generator interface {
	Generate(ctx context.Context, audioPath, transcriptPath string) error
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, audioPath, transcriptPath string) error

// Generate calls f.
func (f Func) Generate(ctx context.Context, audioPath, transcriptPath string) error {
	return f(ctx, audioPath, transcriptPath)
}
