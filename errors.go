package wifiscan

import (
	"errors"

	"github.com/mdlayher/wifiscan/internal/nlerr"
)

// Errors returned by a Client. Use errors.Is to check for them.
var (
	ErrMalformedHeader    = nlerr.ErrMalformedHeader
	ErrMalformedAttribute = nlerr.ErrMalformedAttribute
	ErrTruncated          = nlerr.ErrTruncated
	ErrUnknownFamily      = nlerr.ErrUnknownFamily
	ErrUnknownGroup       = nlerr.ErrUnknownGroup
	ErrTimeout            = nlerr.ErrTimeout
	ErrCanceled           = nlerr.ErrCanceled
	ErrScanInProgress     = nlerr.ErrScanInProgress
	ErrScanAborted        = nlerr.ErrScanAborted

	// ErrNotSupported is returned when an operation is not supported by the
	// interface's driver.
	ErrNotSupported = errors.New("not supported")

	// errUnimplemented is returned on platforms without nl80211.
	errUnimplemented = errors.New("wifiscan: not implemented on this platform")
)

// A KernelError is an error reply from nl80211. Its Errno can be matched
// with errors.Is, for example against syscall.EPERM or os.ErrPermission.
type KernelError = nlerr.KernelError

// A SocketError is an I/O failure of a netlink socket.
type SocketError = nlerr.SocketError
