package wifiscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/wifiscan/internal/genl"
	"github.com/mdlayher/wifiscan/internal/nl80211"
)

// eventQueueSize is the number of queued events of each subscription. The
// channel has one more slot, reserved for EventTerminated.
const eventQueueSize = 64

// An EventKind identifies the type of an Event.
type EventKind int

// Possible EventKind values.
const (
	EventUnknown EventKind = iota
	EventScanTriggered
	EventNewScanResults
	EventScanAborted
	EventScheduledScanResults
	EventScheduledScanStopped
	EventNewInterface
	EventDelInterface
	EventConnect
	EventDisconnect
	EventRegulatoryChange

	// EventTerminated is the last event of a subscription; Err holds the
	// reason.
	EventTerminated
)

// String returns the string representation of an EventKind.
func (k EventKind) String() string {
	switch k {
	case EventUnknown:
		return "unknown"
	case EventScanTriggered:
		return "scan_triggered"
	case EventNewScanResults:
		return "new_scan_results"
	case EventScanAborted:
		return "scan_aborted"
	case EventScheduledScanResults:
		return "scheduled_scan_results"
	case EventScheduledScanStopped:
		return "scheduled_scan_stopped"
	case EventNewInterface:
		return "new_interface"
	case EventDelInterface:
		return "del_interface"
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventRegulatoryChange:
		return "regulatory_change"
	case EventTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("EventKind(%d)", k)
	}
}

var eventKinds = map[uint8]EventKind{
	nl80211.CmdTriggerScan:      EventScanTriggered,
	nl80211.CmdNewScanResults:   EventNewScanResults,
	nl80211.CmdScanAborted:      EventScanAborted,
	nl80211.CmdSchedScanResults: EventScheduledScanResults,
	nl80211.CmdSchedScanStopped: EventScheduledScanStopped,
	nl80211.CmdNewInterface:     EventNewInterface,
	nl80211.CmdDelInterface:     EventDelInterface,
	nl80211.CmdConnect:          EventConnect,
	nl80211.CmdDisconnect:       EventDisconnect,
	nl80211.CmdRegChange:        EventRegulatoryChange,
}

// An Event is an nl80211 multicast notification.
type Event struct {
	Kind EventKind

	// Command is the raw nl80211 command of the notification.
	Command uint8

	// InterfaceIndex, PHY and Device identify the source when the kernel
	// includes them.
	InterfaceIndex int
	PHY            int
	Device         uint64

	// Frequencies and SSIDs are set on scan events.
	Frequencies []int
	SSIDs       [][]byte

	// Regulatory is set on EventRegulatoryChange.
	Regulatory *RegulatoryChange

	// Err is set on EventTerminated.
	Err error
}

// parseEvent classifies an nl80211 notification.
func parseEvent(m genl.Message) Event {
	kind, ok := eventKinds[m.Header.Command]
	if !ok {
		kind = EventUnknown
	}

	ev := Event{Kind: kind, Command: m.Header.Command}
	for _, a := range m.Attributes {
		switch a.Type {
		case nl80211.AttrIfindex:
			ev.InterfaceIndex = int(a.Int)
		case nl80211.AttrWiphy:
			ev.PHY = int(a.Int)
		case nl80211.AttrWdev:
			ev.Device = a.Int
		case nl80211.AttrScanFrequencies:
			for _, f := range a.Nested {
				ev.Frequencies = append(ev.Frequencies, int(f.Int))
			}
		case nl80211.AttrScanSSIDs:
			for _, s := range a.Nested {
				ev.SSIDs = append(ev.SSIDs, s.Data)
			}
		}
	}

	if kind == EventRegulatoryChange {
		ev.Regulatory = parseRegulatoryChange(m.Attributes)
	}

	return ev
}

// A listener receives nl80211 multicast events on its own transport and fans
// them out to subscribers.
type listener struct {
	t       transport
	family  uint16
	log     *slog.Logger
	metrics *metrics

	mu      sync.Mutex
	subs    map[*subscription]struct{}
	stopped bool
	err     error

	cancel context.CancelFunc
	done   chan struct{}
}

type subscription struct {
	c chan Event
}

func newListener(t transport, family uint16, log *slog.Logger, m *metrics) *listener {
	return &listener{
		t:       t,
		family:  family,
		log:     log,
		metrics: m,
		subs:    make(map[*subscription]struct{}),
		done:    make(chan struct{}),
	}
}

// start runs the receive loop in the background until close.
func (l *listener) start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	go func() {
		defer close(l.done)
		_ = l.run(ctx)
	}()
}

// run receives and publishes events until ctx is canceled or the transport
// fails. Either way every subscriber receives EventTerminated. Truncated or
// malformed datagrams are dropped.
func (l *listener) run(ctx context.Context) error {
	for {
		msgs, err := l.t.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.terminate(fmt.Errorf("%w: event listener stopped", ErrCanceled))
				return nil
			}
			switch {
			case errors.Is(err, ErrTruncated):
				l.drop("truncated", err)
				continue
			case errors.Is(err, ErrMalformedHeader), errors.Is(err, ErrMalformedAttribute):
				l.drop("malformed", err)
				continue
			}

			l.log.Error("nl80211 event listener failed", slog.String("err", err.Error()))
			l.terminate(err)
			return err
		}

		for _, m := range msgs {
			l.handle(m)
		}
	}
}

func (l *listener) handle(m netlink.Message) {
	if m.Header.Type != netlink.HeaderType(l.family) {
		return
	}

	gm, err := genl.Unwrap(m, nl80211.Attrs)
	if err != nil {
		l.drop("malformed", err)
		return
	}

	ev := parseEvent(gm)
	l.metrics.events.WithLabelValues(ev.Kind.String()).Inc()
	l.log.Debug("nl80211 event",
		slog.String("event", ev.Kind.String()),
		slog.Int("ifindex", ev.InterfaceIndex),
	)

	l.publish(ev)
}

func (l *listener) drop(reason string, err error) {
	l.metrics.eventsDropped.WithLabelValues(reason).Inc()
	l.log.Warn("dropping nl80211 event",
		slog.String("reason", reason),
		slog.String("err", err.Error()),
	)
}

// publish delivers ev to every subscriber without blocking.
func (l *listener) publish(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for s := range l.subs {
		// Every send holds l.mu, so a free slot stays free.
		if len(s.c) < eventQueueSize {
			s.c <- ev
		} else {
			l.metrics.eventsDropped.WithLabelValues("slow_subscriber").Inc()
			l.log.Warn("subscriber queue full, dropping nl80211 event",
				slog.String("event", ev.Kind.String()))
		}
	}
}

// terminate ends every subscription with EventTerminated.
func (l *listener) terminate(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopped = true
	l.err = err

	for s := range l.subs {
		s.c <- Event{Kind: EventTerminated, Err: err}
		close(s.c)
	}
	clear(l.subs)
}

// subscribe returns a channel of events and a function which ends the
// subscription. A channel closed without EventTerminated was unsubscribed.
func (l *listener) subscribe() (<-chan Event, func()) {
	c := make(chan Event, eventQueueSize+1)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		c <- Event{Kind: EventTerminated, Err: l.err}
		close(c)
		return c, func() {}
	}

	s := &subscription{c: c}
	l.subs[s] = struct{}{}

	return c, func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if _, ok := l.subs[s]; ok {
			delete(l.subs, s)
			close(s.c)
		}
	}
}

// stopErr returns the reason the listener stopped, or nil while it runs.
func (l *listener) stopErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.stopped {
		return nil
	}
	return l.err
}

// close stops the receive loop and closes the transport.
func (l *listener) close() error {
	l.cancel()
	err := l.t.Close()
	<-l.done
	return err
}
