// Package nlerr defines the error taxonomy shared by the netlink layers.
package nlerr

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrMalformedHeader is returned when a netlink or generic netlink header
	// is shorter than required or declares an impossible length.
	ErrMalformedHeader = errors.New("malformed netlink header")

	// ErrMalformedAttribute is returned when an attribute stream cannot be
	// decoded or encoded.
	ErrMalformedAttribute = errors.New("malformed netlink attribute")

	// ErrTruncated is returned when a datagram did not fit the receive buffer.
	ErrTruncated = errors.New("netlink message truncated")

	// ErrWouldBlock is returned by a non-blocking receive with no data ready.
	ErrWouldBlock = errors.New("netlink receive would block")

	// ErrUnknownFamily is returned when the kernel does not know a generic
	// netlink family.
	ErrUnknownFamily = errors.New("generic netlink family not found")

	// ErrUnknownGroup is returned when a family has no multicast group with
	// the requested name.
	ErrUnknownGroup = errors.New("multicast group not found")

	// ErrTimeout is returned when no terminal response arrived in time.
	ErrTimeout = errors.New("timed out waiting for netlink response")

	// ErrCanceled is returned to requests that were pending when their
	// dispatcher shut down.
	ErrCanceled = errors.New("netlink request canceled")

	// ErrScanInProgress is returned when a scan is triggered on an interface
	// which already has one outstanding.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrScanAborted is returned when the kernel reports that a scan was
	// aborted.
	ErrScanAborted = errors.New("scan aborted")
)

// A KernelError is an error reply sent by the kernel for a request.
type KernelError struct {
	// Errno is the positive error number carried by the reply.
	Errno syscall.Errno

	// Message and Offset are populated from extended acknowledgement
	// attributes, when the kernel sends them.
	Message string
	Offset  uint32

	// Sequence is the sequence number of the failed request.
	Sequence uint32
}

func (e *KernelError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("netlink: kernel error (seq %d): %v", e.Sequence, e.Errno)
	}

	return fmt.Sprintf("netlink: kernel error (seq %d): %v: %s", e.Sequence, e.Errno, e.Message)
}

// Unwrap exposes the errno so errors.Is works with syscall and os errors.
func (e *KernelError) Unwrap() error { return e.Errno }

// A SocketError is an I/O failure of the underlying netlink socket.
type SocketError struct {
	Op  string
	Err error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("netlink: socket %s: %v", e.Op, e.Err)
}

func (e *SocketError) Unwrap() error { return e.Err }
