package audio

import "fmt"

// Encoding identifies how the bytes of a Clip are to be interpreted.
type Encoding int

const (
	// EncodingPCM means Data holds raw interleaved PCM samples described by
	// the clip's SampleRate, Channels, and BitDepth fields.
	EncodingPCM Encoding = iota
	// EncodingMP3 means Data holds a compressed MP3 container that carries
	// its own parameters; the clip's PCM fields are zero.
	EncodingMP3
)

func (e Encoding) String() string {
	switch e {
	case EncodingPCM:
		return "pcm"
	case EncodingMP3:
		return "mp3"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// Clip is a canonical audio clip: a byte buffer plus the parameters needed
// to interpret it. Clips are never mutated in place; every transformation
// produces a new Clip.
type Clip struct {
	Data       []byte
	Encoding   Encoding
	SampleRate int // Hz, PCM only
	Channels   int // 1 or 2, PCM only
	BitDepth   int // 8 (unsigned) or 16 (signed LE), PCM only
}

// TargetProfile is the fixed sample rate / channel / bit depth triple a
// playback target requires.
type TargetProfile struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// DefaultTargetProfile matches the ESP32 playback path: lowest byte count
// the device can still play without a software decoder.
var DefaultTargetProfile = TargetProfile{
	SampleRate: 8000,
	Channels:   1,
	BitDepth:   8,
}

// Validate checks that the profile describes a supported PCM layout.
func (p TargetProfile) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", p.SampleRate)
	}
	if p.Channels != 1 && p.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", p.Channels)
	}
	if p.BitDepth != 8 && p.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 8 or 16, got %d", p.BitDepth)
	}
	return nil
}

// PCM16Clip builds a PCM clip from interleaved 16-bit samples.
func PCM16Clip(samples []int16, sampleRate, channels int) *Clip {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return &Clip{
		Data:       data,
		Encoding:   EncodingPCM,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   16,
	}
}

// Empty reports whether the clip carries no audio bytes at all.
func (c *Clip) Empty() bool {
	return c == nil || len(c.Data) == 0
}

// NumFrames returns the number of sample frames in a PCM clip.
func (c *Clip) NumFrames() int {
	if c.Empty() || c.Encoding != EncodingPCM || c.Channels == 0 || c.BitDepth == 0 {
		return 0
	}
	return len(c.Data) / (c.Channels * c.BitDepth / 8)
}

// Duration returns the clip length in seconds for PCM clips, 0 otherwise.
func (c *Clip) Duration() float64 {
	if c.Empty() || c.Encoding != EncodingPCM || c.SampleRate <= 0 {
		return 0
	}
	return float64(c.NumFrames()) / float64(c.SampleRate)
}

// Samples16 returns the clip's PCM payload as interleaved signed 16-bit
// samples, widening 8-bit unsigned audio as needed.
func (c *Clip) Samples16() ([]int16, error) {
	if c.Empty() {
		return nil, fmt.Errorf("clip is empty")
	}
	if c.Encoding != EncodingPCM {
		return nil, fmt.Errorf("clip encoding is %s, expected pcm", c.Encoding)
	}
	switch c.BitDepth {
	case 16:
		if len(c.Data)%2 != 0 {
			return nil, fmt.Errorf("odd byte count %d for 16-bit PCM", len(c.Data))
		}
		samples := make([]int16, len(c.Data)/2)
		for i := range samples {
			samples[i] = int16(c.Data[i*2]) | int16(c.Data[i*2+1])<<8
		}
		return samples, nil
	case 8:
		samples := make([]int16, len(c.Data))
		for i, b := range c.Data {
			samples[i] = (int16(b) - 128) << 8
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", c.BitDepth)
	}
}
