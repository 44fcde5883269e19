package transcode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-sines/logging"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Supported container formats
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// ErrUnsupportedFormat is returned for inputs that are neither WAV nor MP3
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // Mono samples in [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // Channels in the source before mixdown
	BitDepth   int           `json:"bit_depth"`
	Format     string        `json:"format"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	MaxDuration time.Duration `json:"max_duration"` // 0 means no limit
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		MaxDuration: 0,
	}
}

// Decoder decodes WAV and MP3 audio to mono float samples
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes an audio file, choosing the format by extension
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	format := FormatFromPath(filename)
	if format == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		logger.Error(err, "Failed to read audio file")
		return nil, err
	}

	audioData, err := d.DecodeBytes(data, format)
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, err
	}

	logger.Debug("Audio file decoded", logging.Fields{
		"sample_rate": audioData.SampleRate,
		"channels":    audioData.Channels,
		"bit_depth":   audioData.BitDepth,
		"duration":    audioData.Duration.Seconds(),
	})
	return audioData, nil
}

// DecodeReader decodes audio of the given format from an io.Reader
func (d *Decoder) DecodeReader(reader io.Reader, format string) (*AudioData, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return d.DecodeBytes(data, format)
}

// DecodeBytes decodes audio of the given format from a byte slice
func (d *Decoder) DecodeBytes(data []byte, format string) (*AudioData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	var (
		audioData *AudioData
		err       error
	)
	switch strings.ToLower(format) {
	case FormatWAV:
		audioData, err = decodeWAV(bytes.NewReader(data))
	case FormatMP3:
		audioData, err = decodeMP3(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	d.truncate(audioData)
	audioData.Timestamp = time.Now()
	return audioData, nil
}

func (d *Decoder) truncate(a *AudioData) {
	if d.config.MaxDuration > 0 {
		limit := int(d.config.MaxDuration.Seconds() * float64(a.SampleRate))
		if len(a.PCM) > limit {
			a.PCM = a.PCM[:limit]
		}
	}
	a.Duration = samplesToDuration(len(a.PCM), a.SampleRate)
}

func decodeWAV(r io.ReadSeeker) (*AudioData, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}

	// 8-bit WAV is unsigned
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = (float64(v) - offset) / scale
	}

	channels := buf.Format.NumChannels
	return &AudioData{
		PCM:        Mixdown(samples, channels),
		SampleRate: buf.Format.SampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
		Format:     FormatWAV,
	}, nil
}

// decodeMP3 decodes MP3 audio. go-mp3 always produces 16-bit little-endian
// interleaved stereo.
func decodeMP3(r io.Reader) (*AudioData, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	samples := make([]float64, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float64(v) / 32768.0
	}

	return &AudioData{
		PCM:        Mixdown(samples, 2),
		SampleRate: decoder.SampleRate(),
		Channels:   2,
		BitDepth:   16,
		Format:     FormatMP3,
	}, nil
}

// Mixdown averages interleaved channels into one. A trailing partial frame
// is dropped.
func Mixdown(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// FormatFromPath returns the audio format implied by a file extension, or ""
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	default:
		return ""
	}
}

func samplesToDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(sampleRate) * float64(time.Second))
}
