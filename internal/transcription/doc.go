// Package transcription converts uploaded speech to text through an
// external recognizer API. Failures never surface as errors: the client
// returns a degraded transcript carrying a diagnostic sentence so the
// rest of the pipeline can keep producing audible output.
package transcription
