package tracking

import (
	"sort"

	"github.com/RyanBlaney/sonido-sines/algorithms/common"
	"github.com/RyanBlaney/sonido-sines/sinusoidal"
)

// PartialSummary describes one partial over an analysis run
type PartialSummary struct {
	PartialID  int `json:"partial_id"`
	StartFrame int `json:"start_frame"`
	EndFrame   int `json:"end_frame"` // Last frame with a detected peak
	Length     int `json:"length"`    // Detected peaks in the chain
	Bridged    int `json:"bridged"`   // Bridge peaks inserted across gaps

	// Frequency evolution
	MeanFrequency float64 `json:"mean_frequency"`
	FreqStdDev    float64 `json:"freq_std_dev"`
	FreqSlope     float64 `json:"freq_slope"` // Hz per detected peak

	// Amplitude evolution
	MeanAmplitude float64 `json:"mean_amplitude"`
	PeakAmplitude float64 `json:"peak_amplitude"`
	AmpSlope      float64 `json:"amp_slope"`

	Discarded bool `json:"discarded"`
}

// Summarize collects one summary per partial id found in frames, ordered by id.
// Only detected peaks contribute to the statistics.
func Summarize(frames sinusoidal.Frames) []PartialSummary {
	type series struct {
		summary     PartialSummary
		frequencies []float64
		amplitudes  []float64
	}

	byID := make(map[int]*series)
	for _, frame := range frames {
		for _, p := range frame.Peaks() {
			if p.PartialID == sinusoidal.NoPartial {
				continue
			}

			s, ok := byID[p.PartialID]
			if !ok {
				s = &series{summary: PartialSummary{
					PartialID:  p.PartialID,
					StartFrame: p.FrameNumber,
					EndFrame:   p.FrameNumber,
				}}
				byID[p.PartialID] = s
			}

			s.summary.Discarded = s.summary.Discarded || p.Discarded
			if p.Bridge {
				s.summary.Bridged++
				continue
			}

			s.summary.EndFrame = p.FrameNumber
			s.summary.Length++
			s.frequencies = append(s.frequencies, p.Frequency)
			s.amplitudes = append(s.amplitudes, p.Amplitude)
			s.summary.PeakAmplitude = max(s.summary.PeakAmplitude, p.Amplitude)
		}
	}

	summaries := make([]PartialSummary, 0, len(byID))
	for _, s := range byID {
		s.summary.MeanFrequency = common.Mean(s.frequencies)
		s.summary.FreqStdDev = common.StandardDeviation(s.frequencies)
		s.summary.FreqSlope = common.Slope(s.frequencies)
		s.summary.MeanAmplitude = common.Mean(s.amplitudes)
		s.summary.AmpSlope = common.Slope(s.amplitudes)
		summaries = append(summaries, s.summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PartialID < summaries[j].PartialID
	})
	return summaries
}
