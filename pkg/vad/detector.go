// Package vad provides a pure-Go voice activity detector based on RMS energy.
package vad

import "github.com/verbalabs/verba/pkg/audio"

// DefaultThreshold is the RMS level above which a frame counts as speech.
const DefaultThreshold = 0.02

// Detector turns per-frame RMS estimates into a speaking/silent signal.
// Optional hysteresis (frame counts) avoids flicker on borderline input.
type Detector struct {
	threshold     float64
	speechFrames  int
	silenceFrames int

	inSpeech     bool
	speechCount  int
	silenceCount int
}

type Options struct {
	Threshold     float64
	SpeechFrames  int
	SilenceFrames int
}

func New(opts Options) *Detector {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.SpeechFrames <= 0 {
		opts.SpeechFrames = 1
	}
	if opts.SilenceFrames <= 0 {
		opts.SilenceFrames = 1
	}
	return &Detector{
		threshold:     opts.Threshold,
		speechFrames:  opts.SpeechFrames,
		silenceFrames: opts.SilenceFrames,
	}
}

// Observe feeds one capture frame and returns the current speaking state.
func (d *Detector) Observe(samples []float32) bool {
	return d.ObserveLevel(audio.RMS(samples))
}

// ObserveLevel feeds a precomputed RMS level.
func (d *Detector) ObserveLevel(level float64) bool {
	if d.inSpeech {
		if level < d.threshold {
			d.silenceCount++
			d.speechCount = 0
			if d.silenceCount >= d.silenceFrames {
				d.inSpeech = false
				d.silenceCount = 0
			}
		} else {
			d.silenceCount = 0
		}
	} else {
		if level >= d.threshold {
			d.speechCount++
			d.silenceCount = 0
			if d.speechCount >= d.speechFrames {
				d.inSpeech = true
				d.speechCount = 0
			}
		} else {
			d.speechCount = 0
		}
	}
	return d.inSpeech
}

// Speaking reports the current state without feeding a frame.
func (d *Detector) Speaking() bool { return d.inSpeech }

// Reset clears internal state.
func (d *Detector) Reset() {
	d.inSpeech = false
	d.speechCount = 0
	d.silenceCount = 0
}
