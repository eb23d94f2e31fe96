// Package audio handles canonical clip representation and format conversion.
// It implements WAV container encoding/decoding, MP3 intermediate decoding,
// and transcoding down to the constrained playback profile the embedded
// device requires.
package audio
