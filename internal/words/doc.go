// Package words aligns rendered prose against word-level transcript timings.
//
// Alignment is greedy and forward-only: every word of the text produces exactly one span,
// while timing entries that never match are skipped silently once a later word matches
// past them. Transcripts from speech recognition routinely contain extra, missing or
// misspelled entries, so a positional zip would desynchronize on the first mismatch.
//
// The package also loads transcript files ({"version","segments"}) and converts WhisperX
// JSON output into that format.
package words
