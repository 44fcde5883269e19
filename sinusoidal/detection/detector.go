package detection

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-sines/algorithms/common"
	"github.com/RyanBlaney/sonido-sines/algorithms/spectral"
	"github.com/RyanBlaney/sonido-sines/algorithms/windowing"
	"github.com/RyanBlaney/sonido-sines/logging"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
)

const (
	// Floor for log-magnitude interpolation
	dbFloor = -200.0

	// Periods of the lowest strong peak covered by an adaptive frame
	adaptivePeriods = 3.0

	// Peaks within this ratio of the loudest peak count as strong
	strongPeakRatio = 0.1
)

// Detector slices a signal into frames and finds the spectral peaks of each.
// It owns the frames it creates until the next FindPeaks or Clear.
type Detector struct {
	config   Config
	logger   logging.Logger
	analyzer *spectral.FrameAnalyzer
	windows  map[int]*windowing.Window

	frames        sinusoidal.Frames
	nextFrameSize int
}

// Option configures a Detector
type Option func(*Detector)

// WithLogger sets the detector's logger
func WithLogger(logger logging.Logger) Option {
	return func(d *Detector) {
		d.logger = logging.Component(logger, "peak_detector")
	}
}

// NewDetector creates a peak detector
func NewDetector(config Config, opts ...Option) (*Detector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		logger: logging.Component(nil, "peak_detector"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.apply(config)
	return d, nil
}

func (d *Detector) apply(config Config) {
	d.config = config
	d.analyzer = spectral.NewFrameAnalyzer(config.SampleRate)
	d.windows = make(map[int]*windowing.Window)
	d.nextFrameSize = config.FrameSize
}

// Config returns the detection configuration
func (d *Detector) Config() Config {
	return d.config
}

// SetConfig replaces the configuration
func (d *Detector) SetConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	d.apply(config)
	return nil
}

// SetFrameSize sets the analysis window length
func (d *Detector) SetFrameSize(n int) error {
	c := d.config
	c.FrameSize = n
	return d.SetConfig(c)
}

// SetHopSize sets the hop size
func (d *Detector) SetHopSize(n int) error {
	c := d.config
	c.HopSize = n
	return d.SetConfig(c)
}

// SetMaxPeaks sets the number of peaks kept per frame
func (d *Detector) SetMaxPeaks(n int) error {
	c := d.config
	c.MaxPeaks = n
	return d.SetConfig(c)
}

// SetStaticFrameSize switches between fixed and adaptive frame sizes
func (d *Detector) SetStaticFrameSize(static bool) error {
	c := d.config
	c.StaticFrameSize = static
	return d.SetConfig(c)
}

// Frames returns the frames of the last FindPeaks call
func (d *Detector) Frames() sinusoidal.Frames {
	return d.frames
}

// Clear releases the frames of the last run
func (d *Detector) Clear() {
	d.frames.Release()
	d.frames = nil
	d.nextFrameSize = d.config.FrameSize
}

// NextFrameSize returns the size of the next frame. With a static frame size
// it is always FrameSize.
func (d *Detector) NextFrameSize() int {
	if d.config.StaticFrameSize {
		return d.config.FrameSize
	}
	return d.nextFrameSize
}

// FindPeaks cuts audio into frames, one per hop while at least a hop of
// audio remains, and detects the peaks of each. Windows running past the end
// are zero-padded. Audio shorter than one hop yields no frames.
func (d *Detector) FindPeaks(audio []float64) (sinusoidal.Frames, error) {
	d.Clear()

	hop := d.config.HopSize
	frames := make(sinusoidal.Frames, 0, max(0, len(audio)/hop))

	for pos, number := 0, 0; pos <= len(audio)-hop; pos, number = pos+hop, number+1 {
		size := d.NextFrameSize()

		frame := sinusoidal.NewFrame(size)
		frame.SetNumber(number)
		if err := frame.SetMaxPeaks(d.config.MaxPeaks); err != nil {
			return nil, err
		}
		frame.SetAudio(audio[pos:min(pos+size, len(audio))])

		if _, err := d.FindPeaksInFrame(frame); err != nil {
			return nil, fmt.Errorf("frame %d: %w", number, err)
		}
		frames = append(frames, frame)
	}

	d.frames = frames
	d.logger.Debug("Peak detection complete", logging.Fields{
		"frames":  len(frames),
		"samples": len(audio),
	})
	return frames, nil
}

// FindPeaksInFrame detects the peaks in one frame's audio and adds them to
// the frame in ascending frequency order.
func (d *Detector) FindPeaksInFrame(frame *sinusoidal.Frame) ([]*sinusoidal.Peak, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", sinusoidal.ErrInvalidArgument)
	}

	size := frame.Size()
	window, err := d.window(size)
	if err != nil {
		return nil, err
	}

	samples := frame.Audio()
	if len(samples) < size {
		padded := make([]float64, size)
		copy(padded, samples)
		samples = padded
	}

	spectrum, err := d.analyzer.Compute(samples[:size], window, max(size, d.config.WindowSize))
	if err != nil {
		return nil, err
	}

	peaks := d.pickPeaks(spectrum, min(d.config.MaxPeaks, frame.MaxPeaks()))
	for _, p := range peaks {
		if err := frame.AddPeak(p); err != nil {
			return nil, err
		}
	}

	d.updateNextFrameSize(peaks)
	return peaks, nil
}

func (d *Detector) window(size int) (*windowing.Window, error) {
	if w, ok := d.windows[size]; ok {
		return w, nil
	}

	kind, err := windowing.ParseType(d.config.WindowType)
	if err != nil {
		return nil, err
	}
	w, err := windowing.New(kind, size)
	if err != nil {
		return nil, err
	}
	d.windows[size] = w
	return w, nil
}

// pickPeaks finds local maxima of the magnitude spectrum, refines them by
// parabolic interpolation of the log magnitude, enforces the minimum
// separation keeping the louder peak, and keeps the maxPeaks loudest.
func (d *Detector) pickPeaks(spectrum *spectral.Spectrum, maxPeaks int) []*sinusoidal.Peak {
	mag := spectrum.Magnitude
	if len(mag) < 3 {
		return nil
	}

	maxFreq := float64(d.config.SampleRate) / 2
	if d.config.MaxFrequency > 0 {
		maxFreq = math.Min(maxFreq, d.config.MaxFrequency)
	}

	var candidates []*sinusoidal.Peak
	for i := 1; i < len(mag)-1; i++ {
		if mag[i] <= mag[i-1] || mag[i] <= mag[i+1] || mag[i] < d.config.MinPeakAmplitude {
			continue
		}

		a := common.AmplitudeToDB(mag[i-1], dbFloor)
		b := common.AmplitudeToDB(mag[i], dbFloor)
		c := common.AmplitudeToDB(mag[i+1], dbFloor)

		offset := 0.0
		peakDB := b
		if denom := a - 2*b + c; math.Abs(denom) > 1e-12 {
			offset = common.Clamp(0.5*(a-c)/denom, -0.5, 0.5)
			peakDB = b - 0.25*(a-c)*offset
		}

		frequency := spectrum.BinFrequency(float64(i) + offset)
		if frequency <= 0 || frequency > maxFreq {
			continue
		}

		candidates = append(candidates, sinusoidal.NewPeak(
			common.DBToAmplitude(peakDB),
			frequency,
			spectrum.Phase[i],
		))
	}

	// Loudest first, so separation conflicts keep the louder peak
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Amplitude > candidates[j].Amplitude
	})

	accepted := make([]*sinusoidal.Peak, 0, min(len(candidates), maxPeaks))
	for _, p := range candidates {
		if len(accepted) >= maxPeaks {
			break
		}
		if d.tooClose(accepted, p) {
			continue
		}
		accepted = append(accepted, p)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Frequency < accepted[j].Frequency
	})
	return accepted
}

func (d *Detector) tooClose(accepted []*sinusoidal.Peak, p *sinusoidal.Peak) bool {
	if d.config.MinPeakSeparation <= 0 {
		return false
	}
	for _, q := range accepted {
		if math.Abs(q.Frequency-p.Frequency) < d.config.MinPeakSeparation {
			return true
		}
	}
	return false
}

// updateNextFrameSize sizes the next adaptive frame to cover a few periods of
// the lowest strong peak, as a power of two within [hop, 4*FrameSize].
func (d *Detector) updateNextFrameSize(peaks []*sinusoidal.Peak) {
	if d.config.StaticFrameSize || len(peaks) == 0 {
		return
	}

	loudest := 0.0
	for _, p := range peaks {
		loudest = math.Max(loudest, p.Amplitude)
	}

	// peaks are in ascending frequency order
	for _, p := range peaks {
		if p.Amplitude < loudest*strongPeakRatio {
			continue
		}
		size := common.NextPowerOfTwo(int(math.Ceil(adaptivePeriods * float64(d.config.SampleRate) / p.Frequency)))
		lo := common.NextPowerOfTwo(d.config.HopSize)
		hi := 4 * d.config.FrameSize
		d.nextFrameSize = int(common.Clamp(float64(size), float64(lo), float64(hi)))
		return
	}
}
