package common

import "fmt"

// SlidingWindow cuts a sample stream into overlapping frames, one every hop
type SlidingWindow struct {
	buffer     []float64
	windowSize int
	hopSize    int
	writePos   int
	skip       int
}

// NewSlidingWindow creates a new sliding window
func NewSlidingWindow(windowSize, hopSize int) (*SlidingWindow, error) {
	if windowSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("window size and hop size must be positive, got %d and %d", windowSize, hopSize)
	}
	return &SlidingWindow{
		buffer:     make([]float64, windowSize),
		windowSize: windowSize,
		hopSize:    hopSize,
	}, nil
}

// AddSamples adds samples and returns every frame completed by them
func (sw *SlidingWindow) AddSamples(samples []float64) [][]float64 {
	var frames [][]float64

	for _, sample := range samples {
		// Hops longer than the window drop the samples in between
		if sw.skip > 0 {
			sw.skip--
			continue
		}

		sw.buffer[sw.writePos] = sample
		sw.writePos++

		if sw.writePos < sw.windowSize {
			continue
		}

		frame := make([]float64, sw.windowSize)
		copy(frame, sw.buffer)
		frames = append(frames, frame)

		if sw.hopSize < sw.windowSize {
			copy(sw.buffer, sw.buffer[sw.hopSize:])
			sw.writePos = sw.windowSize - sw.hopSize
		} else {
			sw.writePos = 0
			sw.skip = sw.hopSize - sw.windowSize
		}
	}

	return frames
}

// Reset clears the sliding window
func (sw *SlidingWindow) Reset() {
	sw.writePos = 0
	sw.skip = 0
	for i := range sw.buffer {
		sw.buffer[i] = 0.0
	}
}

// WindowSize returns the window size
func (sw *SlidingWindow) WindowSize() int {
	return sw.windowSize
}

// HopSize returns the hop size
func (sw *SlidingWindow) HopSize() int {
	return sw.hopSize
}
