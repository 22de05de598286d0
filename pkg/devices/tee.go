package devices

import (
	"context"
	"errors"
)

// TeeSink duplicates playback into a tap sink, recording what the candidate
// hears while the primary sink plays it. Tap write failures never disturb
// playback.
type TeeSink struct {
	primary Sink
	tap     Sink
}

func NewTeeSink(primary, tap Sink) *TeeSink {
	return &TeeSink{primary: primary, tap: tap}
}

func (t *TeeSink) Name() string { return t.primary.Name() + "+" + t.tap.Name() }
func (t *TeeSink) Rate() int    { return t.primary.Rate() }

func (t *TeeSink) Start(ctx context.Context) error {
	if err := t.primary.Start(ctx); err != nil {
		return err
	}
	if err := t.tap.Start(ctx); err != nil {
		_ = t.primary.Stop()
		return err
	}
	return nil
}

func (t *TeeSink) Stop() error {
	return errors.Join(t.primary.Stop(), t.tap.Stop())
}

func (t *TeeSink) WriteSamples(samples []float32) error {
	err := t.primary.WriteSamples(samples)
	_ = t.tap.WriteSamples(samples)
	return err
}
