// Package nlconn provides a generic netlink socket and the framing of
// netlink messages carried over it.
package nlconn

import (
	"fmt"
	"syscall"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/mdlayher/wifiscan/internal/nlattr"
	"github.com/mdlayher/wifiscan/internal/nlerr"
)

const (
	headerLen = 16

	// DefaultReceiveBufferSize is the size of the buffer used for each read
	// when Config.ReceiveBufferSize is unset.
	DefaultReceiveBufferSize = 32 * 1024

	// Header flags on error replies.
	flagCapped  netlink.HeaderFlags = 0x100
	flagAckTLVs netlink.HeaderFlags = 0x200

	// Extended acknowledgement attributes.
	extAckMsg  = 1
	extAckOffs = 2
)

var extAckSchema = &nlattr.Schema{
	Name: "nlmsgerr",
	Attrs: map[uint16]nlattr.Shape{
		extAckMsg:  nlattr.AsString("MSG"),
		extAckOffs: nlattr.AsUint32("OFFS"),
	},
}

// A Config configures a Conn.
type Config struct {
	// NetNS specifies the network namespace the socket will operate in. If
	// zero, the namespace of the calling thread is used.
	NetNS int

	// ReceiveBufferSize is the size of the buffer used for each read. A
	// datagram larger than this fails with ErrTruncated.
	ReceiveBufferSize int

	// NonBlocking makes Receive return ErrWouldBlock instead of waiting
	// when no datagram is queued.
	NonBlocking bool

	// Strict enables extended acknowledgements and strict attribute checking
	// on kernels which support them.
	Strict bool
}

// MarshalMessage frames m for transmission. The header length is computed
// from the payload.
func MarshalMessage(m netlink.Message) ([]byte, error) {
	m.Header.Length = uint32(align(headerLen + len(m.Data)))

	b, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nlerr.ErrMalformedHeader, err)
	}

	return b, nil
}

// ParseMessages splits one received datagram into its messages. Message
// payloads alias b.
func ParseMessages(b []byte) ([]netlink.Message, error) {
	var msgs []netlink.Message
	for len(b) > 0 {
		if len(b) < headerLen {
			return nil, fmt.Errorf("%w: %d trailing bytes", nlerr.ErrMalformedHeader, len(b))
		}

		l := int(nlenc.Uint32(b[0:4]))
		if l < headerLen || l > len(b) {
			return nil, fmt.Errorf("%w: declared length %d with %d bytes remaining",
				nlerr.ErrMalformedHeader, l, len(b))
		}

		msgs = append(msgs, netlink.Message{
			Header: netlink.Header{
				Length:   uint32(l),
				Type:     netlink.HeaderType(nlenc.Uint16(b[4:6])),
				Flags:    netlink.HeaderFlags(nlenc.Uint16(b[6:8])),
				Sequence: nlenc.Uint32(b[8:12]),
				PID:      nlenc.Uint32(b[12:16]),
			},
			Data: b[headerLen:l],
		})

		b = b[min(align(l), len(b)):]
	}

	return msgs, nil
}

// CheckMessage returns the error carried by m, if any. Acknowledgements,
// successful dump terminators and data messages return nil; kernel errors
// return *nlerr.KernelError.
func CheckMessage(m netlink.Message) error {
	var off int
	switch m.Header.Type {
	case netlink.Error:
		if len(m.Data) < 4 {
			return fmt.Errorf("%w: error message payload is %d bytes", nlerr.ErrMalformedHeader, len(m.Data))
		}

		// Extended acknowledgement attributes follow the echoed request
		// header, and its payload unless the reply was capped.
		off = 4 + headerLen
		if m.Header.Flags&flagCapped == 0 && len(m.Data) >= off {
			off = 4 + align(int(nlenc.Uint32(m.Data[4:8])))
		}
	case netlink.Done:
		if len(m.Data) < 4 {
			return nil
		}
		off = 4
	case netlink.Overrun:
		return &nlerr.SocketError{Op: "receive", Err: syscall.ENOBUFS}
	default:
		return nil
	}

	code := int32(nlenc.Uint32(m.Data[0:4]))
	if code == 0 {
		return nil
	}
	if code < 0 {
		code = -code
	}

	err := &nlerr.KernelError{
		Errno:    syscall.Errno(code),
		Sequence: m.Header.Sequence,
	}

	if m.Header.Flags&flagAckTLVs != 0 && off <= len(m.Data) {
		// Best effort: a malformed extended acknowledgement does not hide
		// the error itself.
		attrs, aerr := nlattr.Unmarshal(m.Data[off:], extAckSchema)
		if aerr == nil {
			if a, ok := nlattr.Find(attrs, extAckMsg); ok && a.Kind == nlattr.KindString {
				err.Message = a.Str
			}
			if a, ok := nlattr.Find(attrs, extAckOffs); ok && a.Kind == nlattr.KindInteger {
				err.Offset = uint32(a.Int)
			}
		}
	}

	return err
}

func align(n int) int { return (n + 3) &^ 3 }
