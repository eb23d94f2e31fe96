package audio

import (
	"bytes"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MP3 stream into a canonical PCM clip. go-mp3 always
// produces interleaved signed 16-bit stereo at the stream's sample rate.
func DecodeMP3(data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot decode empty MP3 data")
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 stream: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("MP3 stream contains no audio")
	}

	return &Clip{
		Data:       pcm,
		Encoding:   EncodingPCM,
		SampleRate: decoder.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	}, nil
}
