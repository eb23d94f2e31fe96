// Package pipeline orchestrates the voice round trip: decode the uploaded
// WAV, transcribe it, generate a reply, synthesize speech, and encode the
// result for device playback. Every run past the ingestion gate produces a
// playable WAV; stage failures degrade the content, never the contract.
package pipeline
