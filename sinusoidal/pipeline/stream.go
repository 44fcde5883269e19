package pipeline

import (
	"fmt"

	"github.com/RyanBlaney/sonido-sines/algorithms/common"
	"github.com/RyanBlaney/sonido-sines/algorithms/filters"
	"github.com/RyanBlaney/sonido-sines/logging"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
)

// FrameHandler observes each frame of a stream after synthesis and before
// the frame is released.
type FrameHandler func(frame *sinusoidal.Frame)

// Stream runs detection, tracking and synthesis one frame at a time as
// samples arrive. Frames have the configured fixed size. The previous frame
// is kept alive while the current one links to it and released afterwards.
//
// MinPartialLength is not applied: the short-partial pass needs whole
// chains, and a stream's earlier frames are already released. Every tracked
// partial is synthesized, however short.
type Stream struct {
	backend Backend
	window  *common.SlidingWindow
	dc      *filters.DCBlocker // nil when disabled
	logger  logging.Logger
	config  Config
	handler FrameHandler

	prev   *sinusoidal.Frame
	number int
}

// NewStream creates an online stream over the pipeline's backend. It resets
// the backend, so a pipeline run and a stream must not be interleaved.
func (p *Pipeline) NewStream(handler FrameHandler) (*Stream, error) {
	window, err := common.NewSlidingWindow(p.config.FrameSize, p.config.HopSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sinusoidal.ErrInvalidConfig, err)
	}
	dc, err := p.config.dcBlocker()
	if err != nil {
		return nil, err
	}

	p.Clear()
	p.backend.Reset()

	return &Stream{
		backend: p.backend,
		window:  window,
		dc:      dc,
		logger:  p.logger,
		config:  p.config,
		handler: handler,
	}, nil
}

// Write consumes samples and returns the synthesized audio of every frame
// they completed, HopSize samples per frame.
func (s *Stream) Write(samples []float64) ([]float64, error) {
	if s.dc != nil {
		samples = s.dc.Process(samples)
	}
	chunks := s.window.AddSamples(samples)
	out := make([]float64, 0, len(chunks)*s.config.HopSize)

	for _, chunk := range chunks {
		synth, err := s.process(chunk)
		if err != nil {
			return out, err
		}
		out = append(out, synth...)
	}
	return out, nil
}

func (s *Stream) process(chunk []float64) ([]float64, error) {
	frame := sinusoidal.NewFrame(len(chunk))
	frame.SetNumber(s.number)
	if err := frame.SetMaxPeaks(s.config.MaxPeaks); err != nil {
		return nil, err
	}
	frame.SetAudio(chunk)

	if _, err := s.backend.FindPeaksInFrame(frame); err != nil {
		return nil, fmt.Errorf("frame %d: peak detection failed: %w", s.number, err)
	}
	if _, err := s.backend.UpdatePartials(frame); err != nil {
		return nil, fmt.Errorf("frame %d: partial tracking failed: %w", s.number, err)
	}
	synth, err := s.backend.SynthFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("frame %d: synthesis failed: %w", s.number, err)
	}

	if s.handler != nil {
		s.handler(frame)
	}

	if s.prev != nil {
		s.prev.Release()
	}
	s.prev = frame
	s.number++
	return synth, nil
}

// Frames returns the number of frames processed so far
func (s *Stream) Frames() int {
	return s.number
}

// Close releases the last frame and resets the backend
func (s *Stream) Close() {
	if s.prev != nil {
		s.prev.Release()
		s.prev = nil
	}
	s.window.Reset()
	if s.dc != nil {
		s.dc.Reset()
	}
	s.backend.Reset()

	s.logger.Debug("Stream closed", logging.Fields{"frames": s.number})
}
