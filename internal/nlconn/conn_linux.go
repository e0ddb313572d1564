//go:build linux

package nlconn

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/socket"
	"github.com/mdlayher/wifiscan/internal/nlerr"
	"golang.org/x/sys/unix"
)

// A Conn is a generic netlink socket. Send and Receive may be used
// concurrently; concurrent Receive calls each consume whole datagrams.
type Conn struct {
	s        *socket.Conn
	pid      uint32
	bufSize  int
	nonblock bool

	mu     sync.Mutex
	seq    uint32
	groups map[uint32]struct{}
}

// Dial opens a generic netlink socket bound to a kernel-assigned port id.
func Dial(cfg *Config) (*Conn, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	s, err := socket.Socket(
		unix.AF_NETLINK,
		unix.SOCK_RAW,
		unix.NETLINK_GENERIC,
		"netlink",
		&socket.Config{NetNS: cfg.NetNS},
	)
	if err != nil {
		return nil, &nlerr.SocketError{Op: "open", Err: err}
	}

	c, err := newConn(s, cfg)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	return c, nil
}

func newConn(s *socket.Conn, cfg *Config) (*Conn, error) {
	if err := s.Bind(&unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return nil, &nlerr.SocketError{Op: "bind", Err: err}
	}

	sa, err := s.Getsockname()
	if err != nil {
		return nil, &nlerr.SocketError{Op: "getsockname", Err: err}
	}

	nsa, ok := sa.(*unix.SockaddrNetlink)
	if !ok {
		return nil, &nlerr.SocketError{
			Op:  "getsockname",
			Err: fmt.Errorf("unexpected socket address %T", sa),
		}
	}

	if cfg.Strict {
		// Not supported by every kernel, and not required for correctness.
		_ = s.SetsockoptInt(unix.SOL_NETLINK, unix.NETLINK_EXT_ACK, 1)
		_ = s.SetsockoptInt(unix.SOL_NETLINK, unix.NETLINK_GET_STRICT_CHK, 1)
	}

	size := cfg.ReceiveBufferSize
	if size <= 0 {
		size = DefaultReceiveBufferSize
	}

	return &Conn{
		s:        s,
		pid:      nsa.Pid,
		bufSize:  size,
		nonblock: cfg.NonBlocking,
		seq:      rand.Uint32(),
		groups:   make(map[uint32]struct{}),
	}, nil
}

// PID returns the port id assigned to the socket by the kernel.
func (c *Conn) PID() uint32 { return c.pid }

// Close closes the socket, unblocking any pending Receive.
func (c *Conn) Close() error {
	if err := c.s.Close(); err != nil {
		return &nlerr.SocketError{Op: "close", Err: err}
	}

	return nil
}

// Send stamps m with the next sequence number and the socket's port id, and
// writes it to the kernel. It returns the sequence number used.
func (c *Conn) Send(m netlink.Message) (uint32, error) {
	c.mu.Lock()
	c.seq = nextSequence(c.seq)
	m.Header.Sequence = c.seq
	c.mu.Unlock()

	m.Header.PID = c.pid

	b, err := MarshalMessage(m)
	if err != nil {
		return 0, err
	}

	to := &unix.SockaddrNetlink{Family: unix.AF_NETLINK}
	if _, err := c.s.Sendmsg(context.Background(), b, nil, to, 0); err != nil {
		return 0, &nlerr.SocketError{Op: "send", Err: err}
	}

	return m.Header.Sequence, nil
}

// Receive reads one datagram and returns the messages it contains.
//
// In blocking mode, Receive waits for data until ctx is done and then returns
// ctx.Err(). In non-blocking mode it returns nlerr.ErrWouldBlock when no
// datagram is queued.
func (c *Conn) Receive(ctx context.Context) ([]netlink.Message, error) {
	b := make([]byte, c.bufSize)

	var (
		n, flags int
		err      error
	)
	if c.nonblock {
		n, flags, err = c.recvNonblock(b)
	} else {
		n, _, flags, _, err = c.s.Recvmsg(ctx, b, nil, 0)
	}
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		if errors.Is(err, nlerr.ErrWouldBlock) {
			return nil, err
		}

		return nil, &nlerr.SocketError{Op: "receive", Err: err}
	}

	if flags&unix.MSG_TRUNC != 0 {
		return nil, fmt.Errorf("%w: datagram exceeds %d byte buffer", nlerr.ErrTruncated, len(b))
	}

	return ParseMessages(b[:n])
}

func (c *Conn) recvNonblock(b []byte) (int, int, error) {
	rc, err := c.s.SyscallConn()
	if err != nil {
		return 0, 0, err
	}

	var (
		n, flags int
		rerr     error
	)
	err = rc.Read(func(fd uintptr) bool {
		n, _, flags, _, rerr = unix.Recvmsg(int(fd), b, nil, unix.MSG_DONTWAIT)
		return true
	})
	switch {
	case err != nil:
		return 0, 0, err
	case errors.Is(rerr, unix.EAGAIN):
		return 0, 0, nlerr.ErrWouldBlock
	case rerr != nil:
		return 0, 0, rerr
	}

	return n, flags, nil
}

// JoinGroup joins a multicast group by id.
func (c *Conn) JoinGroup(group uint32) error {
	if err := c.s.SetsockoptInt(unix.SOL_NETLINK, unix.NETLINK_ADD_MEMBERSHIP, int(group)); err != nil {
		return &nlerr.SocketError{Op: "join group", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[group] = struct{}{}
	return nil
}

// LeaveGroup leaves a multicast group by id.
func (c *Conn) LeaveGroup(group uint32) error {
	if err := c.s.SetsockoptInt(unix.SOL_NETLINK, unix.NETLINK_DROP_MEMBERSHIP, int(group)); err != nil {
		return &nlerr.SocketError{Op: "leave group", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groups, group)
	return nil
}

// Groups returns the ids of the joined multicast groups in ascending order.
func (c *Conn) Groups() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups := make([]uint32, 0, len(c.groups))
	for g := range c.groups {
		groups = append(groups, g)
	}
	slices.Sort(groups)
	return groups
}

// nextSequence wraps around and skips zero, which the kernel uses for
// unsolicited messages.
func nextSequence(seq uint32) uint32 {
	seq++
	if seq == 0 {
		seq = 1
	}

	return seq
}
