package audio

import (
	"fmt"
	"time"

	resampling "github.com/tphakala/go-audio-resampling"
)

// fallbackSilence is the length of the silent WAV emitted when transcoding
// cannot produce real audio. The embedded client cannot parse error text, so
// it always gets something playable.
const fallbackSilence = 250 * time.Millisecond

// Encode transcodes a clip to the target profile and wraps it in a WAV
// container. It never fails: compressed intermediates are decoded in memory,
// channels are down-mixed or duplicated, the sample rate is converted, and
// the bit depth requantized; any error along the way degrades to a valid
// silent WAV at the target profile.
func Encode(clip *Clip, profile TargetProfile) []byte {
	wav, err := encode(clip, profile)
	if err != nil {
		return SilentWAV(profile, fallbackSilence)
	}
	return wav
}

func encode(clip *Clip, profile TargetProfile) ([]byte, error) {
	if clip.Empty() {
		return nil, fmt.Errorf("clip is empty")
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target profile: %w", err)
	}

	// Compressed intermediates (the synthesizer hands back MP3) are staged
	// to PCM entirely in memory; nothing survives past this call.
	if clip.Encoding == EncodingMP3 {
		decoded, err := DecodeMP3(clip.Data)
		if err != nil {
			return nil, err
		}
		clip = decoded
	}

	samples, err := clip.Samples16()
	if err != nil {
		return nil, err
	}

	switch {
	case clip.Channels == 2 && profile.Channels == 1:
		samples = downmixStereo(samples)
	case clip.Channels == 1 && profile.Channels == 2:
		samples = duplicateMono(samples)
	case clip.Channels != profile.Channels:
		return nil, fmt.Errorf("cannot convert %d channels to %d", clip.Channels, profile.Channels)
	}

	if clip.SampleRate != profile.SampleRate {
		samples, err = resample(samples, clip.SampleRate, profile.SampleRate, profile.Channels)
		if err != nil {
			return nil, err
		}
	}

	return EncodeWAV(samples, profile)
}

// resample converts interleaved PCM-16 samples between sample rates using
// float64 intermediate samples normalized to [-1, 1]. Channels are
// de-interleaved and resampled independently; the streaming resampler is
// flushed after the last input so the tail of the clip is not lost.
func resample(samples []int16, srcRate, dstRate, channels int) ([]int16, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", srcRate, dstRate)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	var output []float64
	if channels == 2 {
		left, right := resampling.DeinterleaveFromStereo(input)
		leftOut, err := resampleChannel(left, srcRate, dstRate)
		if err != nil {
			return nil, err
		}
		rightOut, err := resampleChannel(right, srcRate, dstRate)
		if err != nil {
			return nil, err
		}
		output = resampling.InterleaveToStereo(leftOut, rightOut)
	} else {
		var err error
		output, err = resampleChannel(input, srcRate, dstRate)
		if err != nil {
			return nil, err
		}
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("resampler produced no output for %d input samples", len(samples))
	}

	result := make([]int16, len(output))
	for i, s := range output {
		switch {
		case s > 1.0:
			result[i] = 32767
		case s < -1.0:
			result[i] = -32768
		default:
			result[i] = int16(s * 32767.0)
		}
	}

	return result, nil
}

// resampleChannel runs one mono channel through the resampler. Flush drains
// the buffered tail; without it the end of every clip stays inside the
// filter pipeline and short clips produce no output at all.
func resampleChannel(input []float64, srcRate, dstRate int) ([]float64, error) {
	config := &resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}
	resampler, err := resampling.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	output, err := resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	tail, err := resampler.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush error: %w", err)
	}

	return append(output, tail...), nil
}

// downmixStereo averages L and R channels into mono.
func downmixStereo(samples []int16) []int16 {
	numFrames := len(samples) / 2
	mono := make([]int16, numFrames)
	for i := 0; i < numFrames; i++ {
		mono[i] = int16((int32(samples[i*2]) + int32(samples[i*2+1])) / 2)
	}
	return mono
}

// duplicateMono copies each mono sample to both stereo channels.
func duplicateMono(samples []int16) []int16 {
	stereo := make([]int16, len(samples)*2)
	for i, s := range samples {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	return stereo
}
