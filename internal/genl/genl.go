// Package genl implements the generic netlink header layer and family
// resolution through the generic netlink controller.
package genl

import (
	"context"
	"fmt"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/wifiscan/internal/nlattr"
	"github.com/mdlayher/wifiscan/internal/nlerr"
)

const headerLen = 4

// A Message is a generic netlink message with decoded attributes.
type Message struct {
	Header     genetlink.Header
	Attributes []nlattr.Attribute
}

// A Request is a single command sent to a generic netlink family.
type Request struct {
	// Family is the numeric family id, used as the netlink message type.
	Family uint16
	Header genetlink.Header

	Attributes []nlattr.Attribute

	// Flags are added to netlink.Request.
	Flags netlink.HeaderFlags

	// Schema decodes the attributes of each reply.
	Schema *nlattr.Schema
}

// An Executor sends a Request and collects its replies.
type Executor interface {
	Execute(ctx context.Context, req Request) ([]Message, error)
}

// Wrap encodes attrs behind a generic netlink header in a netlink message of
// type family.
func Wrap(family uint16, flags netlink.HeaderFlags, h genetlink.Header, attrs []nlattr.Attribute) (netlink.Message, error) {
	ab, err := nlattr.Marshal(attrs)
	if err != nil {
		return netlink.Message{}, err
	}

	gm := genetlink.Message{Header: h, Data: ab}
	b, err := gm.MarshalBinary()
	if err != nil {
		return netlink.Message{}, err
	}

	return netlink.Message{
		Header: netlink.Header{
			Type:  netlink.HeaderType(family),
			Flags: flags,
		},
		Data: b,
	}, nil
}

// Unwrap decodes the generic netlink header and attributes of m using s.
func Unwrap(m netlink.Message, s *nlattr.Schema) (Message, error) {
	if len(m.Data) < headerLen {
		return Message{}, fmt.Errorf("%w: generic netlink payload is %d bytes",
			nlerr.ErrMalformedHeader, len(m.Data))
	}

	var gm genetlink.Message
	if err := gm.UnmarshalBinary(m.Data); err != nil {
		return Message{}, fmt.Errorf("%w: %v", nlerr.ErrMalformedHeader, err)
	}

	attrs, err := nlattr.Unmarshal(gm.Data, s)
	if err != nil {
		return Message{}, err
	}

	return Message{Header: gm.Header, Attributes: attrs}, nil
}
