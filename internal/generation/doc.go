// Package generation produces a short spoken reply for a transcript using
// the Gemini API. Replies are length-capped locally so the downstream
// synthesizer never receives unbounded text.
package generation
