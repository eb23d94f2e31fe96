package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// WAVHeader represents the canonical 44-byte header of a PCM WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

const wavHeaderSize = 44

// EncodeWAV encodes interleaved PCM-16 samples into a WAV container at the
// given profile. The samples must already be at the profile's sample rate
// and channel count; 8-bit profiles are requantized to unsigned PCM here.
func EncodeWAV(samples []int16, profile TargetProfile) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target profile: %w", err)
	}

	bytesPerSample := profile.BitDepth / 8
	dataSize := uint32(len(samples) * bytesPerSample)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(profile.Channels),
		SampleRate:    uint32(profile.SampleRate),
		ByteRate:      uint32(profile.SampleRate * profile.Channels * bytesPerSample),
		BlockAlign:    uint16(profile.Channels * bytesPerSample),
		BitsPerSample: uint16(profile.BitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*bytesPerSample))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	switch profile.BitDepth {
	case 16:
		if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
			return nil, fmt.Errorf("failed to write audio data: %w", err)
		}
	case 8:
		// Unsigned 8-bit PCM stores samples biased around 0x80.
		data := make([]byte, len(samples))
		for i, s := range samples {
			data[i] = byte((int32(s) + 32768) >> 8)
		}
		buf.Write(data)
	}

	return buf.Bytes(), nil
}

// DecodeWAV decodes a WAV container into a canonical PCM clip. The clip
// keeps the container's original parameters; no resampling occurs here.
// Chunks are walked rather than assumed at fixed offsets, so recorder
// firmware that inserts LIST/INFO metadata between fmt and data still
// passes the gate.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < wavHeaderSize {
		return nil, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var (
		fmtFound      bool
		audioFormat   uint16
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
		dataFound     bool
		payload       []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || body+16 > len(data) {
				return nil, fmt.Errorf("invalid WAV file: malformed fmt chunk")
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			numChannels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			fmtFound = true
		case "data":
			if body+chunkSize > len(data) {
				return nil, fmt.Errorf("WAV data truncated: header declares %d bytes, got %d", chunkSize, len(data)-body)
			}
			payload = data[body : body+chunkSize]
			dataFound = true
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !fmtFound {
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if !dataFound {
		return nil, fmt.Errorf("invalid WAV file: missing data chunk")
	}
	if audioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", audioFormat)
	}
	if bitsPerSample != 8 && bitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (only 8 and 16 bit are supported)", bitsPerSample)
	}
	if numChannels != 1 && numChannels != 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (only mono and stereo are supported)", numChannels)
	}
	if sampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("no audio data found")
	}

	return &Clip{
		Data:       payload,
		Encoding:   EncodingPCM,
		SampleRate: int(sampleRate),
		Channels:   int(numChannels),
		BitDepth:   int(bitsPerSample),
	}, nil
}

// ValidateWAV validates a WAV file format without decoding the audio data
func ValidateWAV(data []byte) error {
	if len(data) < wavHeaderSize {
		return fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}

	return nil
}

// SilentWAV builds a syntactically valid WAV of silence at the given
// profile. It cannot fail; this is the terminal fallback that keeps the
// embedded client supplied with a playable file.
func SilentWAV(profile TargetProfile, d time.Duration) []byte {
	if profile.Validate() != nil {
		profile = DefaultTargetProfile
	}
	if d < 0 {
		d = 0
	}

	numFrames := int(float64(profile.SampleRate) * d.Seconds())
	numSamples := numFrames * profile.Channels
	bytesPerSample := profile.BitDepth / 8
	dataSize := uint32(numSamples * bytesPerSample)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(profile.Channels),
		SampleRate:    uint32(profile.SampleRate),
		ByteRate:      uint32(profile.SampleRate * profile.Channels * bytesPerSample),
		BlockAlign:    uint16(profile.Channels * bytesPerSample),
		BitsPerSample: uint16(profile.BitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+int(dataSize)))
	binary.Write(buf, binary.LittleEndian, header)

	silence := byte(0)
	if profile.BitDepth == 8 {
		silence = 0x80 // unsigned midpoint
	}
	buf.Write(bytes.Repeat([]byte{silence}, int(dataSize)))

	return buf.Bytes()
}

// WAVInfo holds basic information about a WAV file
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumFrames     uint32  `json:"num_frames"`
}

// GetWAVInfo extracts metadata from a WAV file
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	if err := ValidateWAV(data); err != nil {
		return nil, err
	}

	buf := bytes.NewReader(data)
	var header WAVHeader
	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if header.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}
	bytesPerFrame := uint32(header.NumChannels) * uint32(header.BitsPerSample) / 8
	if bytesPerFrame == 0 {
		return nil, fmt.Errorf("invalid frame layout: %d channels, %d bits", header.NumChannels, header.BitsPerSample)
	}

	numFrames := header.Subchunk2Size / bytesPerFrame
	duration := float64(numFrames) / float64(header.SampleRate)

	return &WAVInfo{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      duration,
		DataSize:      header.Subchunk2Size,
		NumFrames:     numFrames,
	}, nil
}

// GetWAVDuration calculates the duration of a WAV file in seconds
func GetWAVDuration(data []byte) (float64, error) {
	info, err := GetWAVInfo(data)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}
