package wifiscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/wifiscan/internal/genl"
	"github.com/mdlayher/wifiscan/internal/nl80211"
	"github.com/mdlayher/wifiscan/internal/nlconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// A transport is a netlink socket. *nlconn.Conn implements it on Linux.
type transport interface {
	Send(m netlink.Message) (uint32, error)
	Receive(ctx context.Context) ([]netlink.Message, error)
	JoinGroup(group uint32) error
	Close() error
}

var _ genl.Executor = &dispatcher{}

// A dispatcher correlates requests on a transport with their replies by
// sequence number.
type dispatcher struct {
	t       transport
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics
	tracer  trace.Tracer

	// mu serializes requests: one is in flight at a time.
	mu sync.Mutex

	pmu     sync.Mutex
	pending map[uint32]*pendingRequest
	closed  bool
}

// A pendingRequest collects the replies to one request. Only the goroutine
// executing the request touches its fields.
type pendingRequest struct {
	seq   uint32
	start time.Time
	dump  bool
	ack   bool

	msgs []netlink.Message
	done bool
	err  error
}

func newDispatcher(t transport, timeout time.Duration, log *slog.Logger, m *metrics, tracer trace.Tracer) *dispatcher {
	return &dispatcher{
		t:       t,
		timeout: timeout,
		log:     log,
		metrics: m,
		tracer:  tracer,
		pending: make(map[uint32]*pendingRequest),
	}
}

// Execute sends req and returns its replies in arrival order.
func (d *dispatcher) Execute(ctx context.Context, req genl.Request) ([]genl.Message, error) {
	name := commandName(req)
	ctx, span := d.tracer.Start(ctx, "netlink "+name, trace.WithAttributes(
		attribute.Int("genl.family", int(req.Family)),
		attribute.String("genl.command", name),
		attribute.Bool("netlink.dump", req.Flags&netlink.Dump != 0),
	))
	defer span.End()

	start := time.Now()
	msgs, err := d.execute(ctx, req)
	d.metrics.observeRequest(name, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("netlink.replies", len(msgs)))
	return msgs, nil
}

func (d *dispatcher) execute(ctx context.Context, req genl.Request) ([]genl.Message, error) {
	m, err := genl.Wrap(req.Family, netlink.Request|req.Flags, req.Header, req.Attributes)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isClosed() {
		return nil, fmt.Errorf("%w: dispatcher is closed", ErrCanceled)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	seq, err := d.t.Send(m)
	if err != nil {
		if d.isClosed() {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		return nil, err
	}

	p := &pendingRequest{
		seq:   seq,
		start: time.Now(),
		dump:  req.Flags&netlink.Dump != 0,
		ack:   req.Flags&netlink.Acknowledge != 0,
	}
	if !d.register(p) {
		return nil, fmt.Errorf("%w: dispatcher is closed", ErrCanceled)
	}
	defer d.unregister(seq)

	for !p.done {
		msgs, err := d.t.Receive(ctx)
		if err != nil {
			return nil, d.receiveError(p, err)
		}

		for _, m := range msgs {
			d.route(m)
		}
	}
	if p.err != nil {
		return nil, p.err
	}

	out := make([]genl.Message, 0, len(p.msgs))
	for _, m := range p.msgs {
		gm, err := genl.Unwrap(m, req.Schema)
		if err != nil {
			return nil, err
		}
		out = append(out, gm)
	}

	return out, nil
}

// route hands m to its pending request, or discards it.
func (d *dispatcher) route(m netlink.Message) {
	d.pmu.Lock()
	p, ok := d.pending[m.Header.Sequence]
	d.pmu.Unlock()

	switch {
	case !ok:
		d.discard(m, "unknown_sequence")
		return
	case p.done:
		d.discard(m, "late_reply")
		return
	}

	switch m.Header.Type {
	case netlink.Noop:
		return
	case netlink.Error, netlink.Done, netlink.Overrun:
		// Errors, acknowledgements and the end of a dump all terminate.
		p.finish(nlconn.CheckMessage(m))
		return
	}

	p.msgs = append(p.msgs, m)
	if !p.dump && !p.ack && m.Header.Flags&netlink.Multi == 0 {
		p.finish(nil)
	}
}

func (p *pendingRequest) finish(err error) {
	p.done = true
	p.err = err
}

func (d *dispatcher) discard(m netlink.Message, reason string) {
	d.metrics.discarded.WithLabelValues(reason).Inc()
	d.log.Debug("discarding netlink message",
		slog.Uint64("seq", uint64(m.Header.Sequence)),
		slog.Int("type", int(m.Header.Type)),
		slog.String("reason", reason),
	)
}

// receiveError maps a transport failure while waiting for p.
func (d *dispatcher) receiveError(p *pendingRequest, err error) error {
	switch {
	case d.isClosed():
		return fmt.Errorf("%w: dispatcher closed while waiting for sequence %d", ErrCanceled, p.seq)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: no reply to sequence %d after %s",
			ErrTimeout, p.seq, time.Since(p.start).Round(time.Millisecond))
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	default:
		return err
	}
}

func (d *dispatcher) register(p *pendingRequest) bool {
	d.pmu.Lock()
	defer d.pmu.Unlock()

	if d.closed {
		return false
	}

	d.pending[p.seq] = p
	return true
}

func (d *dispatcher) unregister(seq uint32) {
	d.pmu.Lock()
	defer d.pmu.Unlock()
	delete(d.pending, seq)
}

func (d *dispatcher) isClosed() bool {
	d.pmu.Lock()
	defer d.pmu.Unlock()
	return d.closed
}

// close cancels any pending request and closes the transport.
func (d *dispatcher) close() error {
	d.pmu.Lock()
	d.closed = true
	n := len(d.pending)
	d.pmu.Unlock()

	if n > 0 {
		d.log.Debug("canceling pending netlink requests", slog.Int("count", n))
	}

	return d.t.Close()
}

// commandName names the command of req for metrics and traces.
func commandName(req genl.Request) string {
	if req.Family == genl.ControllerID {
		return "CTRL_GETFAMILY"
	}

	return nl80211.CommandName(req.Header.Command)
}
