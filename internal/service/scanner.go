package service

import (
	"context"
	"errors"
	"time"
)

var errScannerBusy = errors.New("a captured code is already pending")

// ChannelScanner receives captured codes from an external capture callback,
// such as a device posting the decoded QR text.
type ChannelScanner struct {
	codes chan string
}

// NewChannelScanner creates a scanner holding at most one pending code.
func NewChannelScanner() *ChannelScanner {
	return &ChannelScanner{codes: make(chan string, 1)}
}

// Capture waits for the next offered code.
func (s *ChannelScanner) Capture(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case raw := <-s.codes:
		return raw, nil
	}
}

// Offer hands a captured code to the waiting Capture call.
func (s *ChannelScanner) Offer(raw string) error {
	select {
	case s.codes <- raw:
		return nil
	default:
		return errScannerBusy
	}
}

// Reset drops any code left over from an abandoned capture.
func (s *ChannelScanner) Reset() {
	for {
		select {
		case <-s.codes:
		default:
			return
		}
	}
}

// SimulatedScanner mimics a camera: it waits delay, then yields whatever
// source returns.
type SimulatedScanner struct {
	delay  time.Duration
	source func(ctx context.Context) (string, error)
}

// NewSimulatedScanner creates a scanner with a fixed capture delay.
func NewSimulatedScanner(delay time.Duration, source func(ctx context.Context) (string, error)) *SimulatedScanner {
	return &SimulatedScanner{delay: delay, source: source}
}

// Capture waits for the delay or ctx, whichever is first.
func (s *SimulatedScanner) Capture(ctx context.Context) (string, error) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}
	return s.source(ctx)
}
