package wifiscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mdlayher/wifiscan/internal/nl80211"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultScanTimeout bounds the wait for scan results when
// ScanOptions.Timeout is zero.
const DefaultScanTimeout = 30 * time.Second

// Scan flags for ScanOptions.Flags.
const (
	ScanFlagLowPriority uint32 = nl80211.ScanFlagLowPriority
	ScanFlagFlush       uint32 = nl80211.ScanFlagFlush
	ScanFlagRandomAddr  uint32 = nl80211.ScanFlagRandomAddr
)

// ScanOptions are optional parameters for a scan.
type ScanOptions struct {
	// SSIDs are the networks to actively probe for. If empty, a single
	// wildcard SSID is probed.
	SSIDs [][]byte

	// Frequencies restricts the scan to these frequencies in MHz.
	Frequencies []int

	// Flags are nl80211 scan flags such as ScanFlagFlush.
	Flags uint32

	// Timeout bounds the wait for results; DefaultScanTimeout if zero.
	Timeout time.Duration
}

// A ScanState is a step of the scan workflow of one interface.
type ScanState int

// Possible ScanState values.
const (
	ScanIdle ScanState = iota
	ScanTriggering
	ScanWaiting
	ScanFetchingResults
	ScanCompleted
	ScanError
)

// String returns the string representation of a ScanState.
func (s ScanState) String() string {
	switch s {
	case ScanIdle:
		return "idle"
	case ScanTriggering:
		return "triggering"
	case ScanWaiting:
		return "waiting"
	case ScanFetchingResults:
		return "fetching results"
	case ScanCompleted:
		return "completed"
	case ScanError:
		return "error"
	default:
		return fmt.Sprintf("ScanState(%d)", s)
	}
}

// A scanRun is one scan workflow.
type scanRun struct {
	ifindex int
	state   ScanState
}

// A scanner tracks the scan workflow of each interface index.
type scanner struct {
	log *slog.Logger

	mu   sync.Mutex
	runs map[int]*scanRun

	// onTransition, if set, is called after every state change.
	onTransition func(ifindex int, from, to ScanState)
}

func newScanner(log *slog.Logger) *scanner {
	return &scanner{
		log:  log,
		runs: make(map[int]*scanRun),
	}
}

// begin starts a workflow for ifindex unless one is triggering or waiting.
// A workflow fetching results no longer holds the interface, and a finished
// one is replaced.
func (s *scanner) begin(ifindex int) (*scanRun, error) {
	s.mu.Lock()
	if r, ok := s.runs[ifindex]; ok && (r.state == ScanTriggering || r.state == ScanWaiting) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: interface %d is %s", ErrScanInProgress, ifindex, r.state)
	}

	r := &scanRun{ifindex: ifindex, state: ScanIdle}
	s.runs[ifindex] = r
	s.mu.Unlock()

	s.transition(r, ScanTriggering)
	return r, nil
}

func (s *scanner) transition(r *scanRun, to ScanState) {
	s.mu.Lock()
	from := r.state
	r.state = to
	s.mu.Unlock()

	s.log.Debug("scan state",
		slog.Int("ifindex", r.ifindex),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)

	if s.onTransition != nil {
		s.onTransition(r.ifindex, from, to)
	}
}

// finish moves r to its terminal state, which is kept until the next begin.
func (s *scanner) finish(r *scanRun, err error) {
	if err != nil {
		s.transition(r, ScanError)
	} else {
		s.transition(r, ScanCompleted)
	}
}

// release returns r to ScanIdle and forgets it.
func (s *scanner) release(r *scanRun) {
	s.transition(r, ScanIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs[r.ifindex] == r {
		delete(s.runs, r.ifindex)
	}
}

// state returns the state of the latest workflow of ifindex.
func (s *scanner) state(ifindex int) ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.runs[ifindex]; ok {
		return r.state
	}
	return ScanIdle
}

// scan runs the scan workflow for ifi: trigger, wait for the results event,
// then dump the results.
func (c *client) scan(ctx context.Context, ifi *Interface, opts *ScanOptions) ([]*ScanResult, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}

	ctx, span := c.tracer.Start(ctx, "wifiscan.Scan", trace.WithAttributes(
		attribute.Int("wifi.ifindex", ifi.Index),
		attribute.String("wifi.interface", ifi.Name),
	))
	defer span.End()

	results, err := c.runScan(ctx, ifi, opts)
	c.metrics.scans.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("wifi.scan_results", len(results)))
	return results, nil
}

func (c *client) runScan(ctx context.Context, ifi *Interface, opts *ScanOptions) (results []*ScanResult, err error) {
	r, err := c.scans.begin(ifi.Index)
	if err != nil {
		return nil, err
	}
	defer func() { c.scans.finish(r, err) }()

	// Subscribe before triggering so the results event cannot be missed.
	l, err := c.events()
	if err != nil {
		return nil, err
	}
	events, unsubscribe := l.subscribe()
	defer unsubscribe()

	if err := c.triggerScan(ctx, ifi, opts); err != nil {
		return nil, err
	}
	c.scans.transition(r, ScanWaiting)

	if err := waitScan(ctx, l, events, ifi.Index, opts.Timeout); err != nil {
		return nil, err
	}
	c.scans.transition(r, ScanFetchingResults)

	return c.scanResults(ctx, ifi)
}

// waitScan waits for the kernel to announce new scan results for ifindex.
func waitScan(ctx context.Context, l *listener, events <-chan Event, ifindex int, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: waiting for scan results: %w", ErrTimeout, ctx.Err())
			}
			return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		case <-timer.C:
			return fmt.Errorf("%w: no scan results after %s", ErrTimeout, timeout)
		case ev, ok := <-events:
			if !ok {
				if err := l.stopErr(); err != nil {
					return err
				}
				return fmt.Errorf("%w: event subscription ended", ErrCanceled)
			}

			switch {
			case ev.Kind == EventTerminated:
				return ev.Err
			case ev.InterfaceIndex != ifindex:
				continue
			case ev.Kind == EventNewScanResults:
				return nil
			case ev.Kind == EventScanAborted:
				return fmt.Errorf("%w: interface %d", ErrScanAborted, ifindex)
			}
		}
	}
}
