// Package synthesis converts reply text to speech through an external
// text-to-speech endpoint. Long text is split into chunks the endpoint
// accepts and the returned MP3 segments are concatenated into one clip.
package synthesis
