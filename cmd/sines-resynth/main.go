package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/RyanBlaney/sonido-sines/logging"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/pipeline"
	"github.com/RyanBlaney/sonido-sines/sinusoidal/tracking"
	"github.com/RyanBlaney/sonido-sines/transcode"
	"github.com/joho/godotenv"
)

// report is the JSON document written by -report
type report struct {
	Input      string                    `json:"input"`
	SampleRate int                       `json:"sample_rate"`
	Duration   float64                   `json:"duration_seconds"`
	Frames     int                       `json:"frames"`
	Config     pipeline.Config           `json:"config"`
	Partials   []tracking.PartialSummary `json:"partials"`
}

func main() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	defaults := pipeline.DefaultConfig()
	env := &envDefaults{}

	input := flag.String("input", env.Text("SINES_INPUT", ""), "Input WAV or MP3 file")
	output := flag.String("output", env.Text("SINES_OUTPUT", "resynth.wav"), "Output WAV file path")
	reportPath := flag.String("report", env.Text("SINES_REPORT", ""), "Write a JSON partial report to this path (optional)")
	configPath := flag.String("config", env.Text("SINES_CONFIG", ""), "Pipeline JSON config file (optional)")
	logLevel := flag.String("log-level", env.Text("SINES_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	frameSize := flag.Int("frame-size", env.Int("SINES_FRAME_SIZE", defaults.FrameSize), "Analysis frame size in samples")
	hopSize := flag.Int("hop-size", env.Int("SINES_HOP_SIZE", defaults.HopSize), "Hop size in samples")
	maxPeaks := flag.Int("max-peaks", env.Int("SINES_MAX_PEAKS", defaults.MaxPeaks), "Maximum peaks per frame")
	maxPartials := flag.Int("max-partials", env.Int("SINES_MAX_PARTIALS", defaults.MaxPartials), "Maximum simultaneous partials")
	maxGap := flag.Int("max-gap", env.Int("SINES_MAX_GAP", defaults.MaxGap), "Frames a partial may go undetected before it dies")
	minLength := flag.Int("min-length", env.Int("SINES_MIN_PARTIAL_LENGTH", defaults.MinPartialLength), "Discard partials with fewer detected peaks (0 keeps all)")
	maxDeviation := flag.Float64("max-deviation", env.Float("SINES_MAX_FREQ_DEVIATION", defaults.MaxFreqDeviation), "Maximum frequency change between frames in Hz")
	dcCutoff := flag.Float64("dc-cutoff", env.Float("SINES_DC_CUTOFF", defaults.DCCutoff), "DC blocking cutoff in Hz (0 disables)")
	static := flag.Bool("static", env.Bool("SINES_STATIC_FRAME_SIZE", defaults.StaticFrameSize), "Use a fixed frame size instead of adaptive framing")
	flag.Parse()

	if err := env.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid environment:\n%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logging.SetLevel(level)
	logger := logging.WithFields(logging.Fields{"component": "sines_resynth"})

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		flag.Usage()
		os.Exit(2)
	}

	config := defaults
	if *configPath != "" {
		config, err = pipeline.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal(err, "Failed to load config", logging.Fields{"path": *configPath})
		}
	}

	// Without a config file every flag applies; with one, only explicit flags
	// override it
	visit := flag.VisitAll
	if *configPath != "" {
		visit = flag.Visit
	}
	visit(func(f *flag.Flag) {
		switch f.Name {
		case "frame-size":
			config.FrameSize = *frameSize
		case "hop-size":
			config.HopSize = *hopSize
		case "max-peaks":
			config.MaxPeaks = *maxPeaks
		case "max-partials":
			config.MaxPartials = *maxPartials
		case "max-gap":
			config.MaxGap = *maxGap
		case "min-length":
			config.MinPartialLength = *minLength
		case "max-deviation":
			config.MaxFreqDeviation = *maxDeviation
		case "dc-cutoff":
			config.DCCutoff = *dcCutoff
		case "static":
			config.StaticFrameSize = *static
		}
	})

	audio, err := transcode.NewDecoder(nil).DecodeFile(*input)
	if err != nil {
		logger.Fatal(err, "Failed to decode input", logging.Fields{"input": *input})
	}
	config.SampleRate = audio.SampleRate

	p, err := pipeline.New(config, pipeline.WithLogger(logger))
	if err != nil {
		logger.Fatal(err, "Invalid pipeline configuration")
	}

	frames, err := p.Run(audio.PCM)
	if err != nil {
		logger.Fatal(err, "Resynthesis failed", logging.Fields{"input": *input})
	}

	if err := transcode.WriteWAV(*output, p.Render(), audio.SampleRate); err != nil {
		logger.Fatal(err, "Failed to write output", logging.Fields{"output": *output})
	}

	if *reportPath != "" {
		r := report{
			Input:      *input,
			SampleRate: audio.SampleRate,
			Duration:   audio.Duration.Seconds(),
			Frames:     len(frames),
			Config:     p.Config(),
			Partials:   p.Summaries(),
		}
		if err := writeJSON(*reportPath, r); err != nil {
			logger.Fatal(err, "Failed to write report", logging.Fields{"report": *reportPath})
		}
	}

	fmt.Printf("Wrote %s (%d frames, %d partials)\n", *output, len(frames), len(p.Summaries()))
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// envDefaults reads flag defaults from SINES_* variables and records values
// that fail to parse
type envDefaults struct {
	errs []error
}

func (e *envDefaults) Text(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func (e *envDefaults) Int(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not an integer", key, v))
		return fallback
	}
	return n
}

func (e *envDefaults) Float(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not a number", key, v))
		return fallback
	}
	return f
}

func (e *envDefaults) Bool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not a boolean", key, v))
		return fallback
	}
	return b
}

// Err returns every parse failure, or nil
func (e *envDefaults) Err() error {
	return errors.Join(e.errs...)
}
