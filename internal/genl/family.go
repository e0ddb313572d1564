package genl

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/wifiscan/internal/nlattr"
	"github.com/mdlayher/wifiscan/internal/nlerr"
)

// ControllerID is the fixed family id of the generic netlink controller.
const ControllerID = 0x10

// Controller commands and attributes.
const (
	ctrlVersion = 1

	ctrlCmdNewFamily = 1
	ctrlCmdGetFamily = 3

	ctrlAttrFamilyID    = 1
	ctrlAttrFamilyName  = 2
	ctrlAttrVersion     = 3
	ctrlAttrHdrSize     = 4
	ctrlAttrMaxAttr     = 5
	ctrlAttrOps         = 6
	ctrlAttrMcastGroups = 7

	ctrlAttrOpID    = 1
	ctrlAttrOpFlags = 2

	ctrlAttrMcastGrpName = 1
	ctrlAttrMcastGrpID   = 2
)

var (
	opSchema = &nlattr.Schema{
		Name: "ctrl_op",
		Attrs: map[uint16]nlattr.Shape{
			ctrlAttrOpID:    nlattr.AsUint32("OP_ID"),
			ctrlAttrOpFlags: nlattr.AsUint32("OP_FLAGS"),
		},
	}

	groupSchema = &nlattr.Schema{
		Name: "ctrl_mcast_grp",
		Attrs: map[uint16]nlattr.Shape{
			ctrlAttrMcastGrpName: nlattr.AsString("MCAST_GRP_NAME"),
			ctrlAttrMcastGrpID:   nlattr.AsUint32("MCAST_GRP_ID"),
		},
	}

	opElem    = nlattr.AsNested("OP", opSchema)
	groupElem = nlattr.AsNested("MCAST_GRP", groupSchema)

	// ControllerSchema describes the attributes of controller replies.
	ControllerSchema = &nlattr.Schema{
		Name: "ctrl",
		Attrs: map[uint16]nlattr.Shape{
			ctrlAttrFamilyID:    nlattr.AsUint16("FAMILY_ID"),
			ctrlAttrFamilyName:  nlattr.AsString("FAMILY_NAME"),
			ctrlAttrVersion:     nlattr.AsUint32("VERSION"),
			ctrlAttrHdrSize:     nlattr.AsUint32("HDRSIZE"),
			ctrlAttrMaxAttr:     nlattr.AsUint32("MAXATTR"),
			ctrlAttrOps:         nlattr.AsNested("OPS", &nlattr.Schema{Name: "ctrl_ops", Elem: &opElem}),
			ctrlAttrMcastGroups: nlattr.AsNested("MCAST_GROUPS", &nlattr.Schema{Name: "ctrl_mcast_grps", Elem: &groupElem}),
		},
	}
)

// ResolveFamily asks the controller for the family with the given name.
func ResolveFamily(ctx context.Context, e Executor, name string) (genetlink.Family, error) {
	msgs, err := e.Execute(ctx, Request{
		Family: ControllerID,
		Header: genetlink.Header{
			Command: ctrlCmdGetFamily,
			Version: ctrlVersion,
		},
		Attributes: []nlattr.Attribute{nlattr.String(ctrlAttrFamilyName, name)},
		Schema:     ControllerSchema,
	})
	if err != nil {
		var kerr *nlerr.KernelError
		if errors.As(err, &kerr) && kerr.Errno == syscall.ENOENT {
			return genetlink.Family{}, fmt.Errorf("%w: %q: %w", nlerr.ErrUnknownFamily, name, err)
		}

		return genetlink.Family{}, err
	}

	switch len(msgs) {
	case 0:
		return genetlink.Family{}, fmt.Errorf("%w: %q: no reply from controller", nlerr.ErrUnknownFamily, name)
	case 1:
	default:
		return genetlink.Family{}, fmt.Errorf("genl: expected one controller reply for %q, but got %d", name, len(msgs))
	}

	if c := msgs[0].Header.Command; c != ctrlCmdNewFamily {
		return genetlink.Family{}, fmt.Errorf("genl: unexpected controller command %d for %q", c, name)
	}

	f := parseFamily(msgs[0].Attributes)
	if f.ID == 0 {
		return genetlink.Family{}, fmt.Errorf("%w: %q: reply carries no family id", nlerr.ErrUnknownFamily, name)
	}

	return f, nil
}

func parseFamily(attrs []nlattr.Attribute) genetlink.Family {
	var f genetlink.Family
	for _, a := range attrs {
		switch a.Type {
		case ctrlAttrFamilyID:
			f.ID = uint16(a.Int)
		case ctrlAttrFamilyName:
			f.Name = a.Str
		case ctrlAttrVersion:
			f.Version = uint8(a.Int)
		case ctrlAttrMcastGroups:
			for _, ga := range a.Nested {
				var g genetlink.MulticastGroup
				for _, b := range ga.Nested {
					switch b.Type {
					case ctrlAttrMcastGrpName:
						g.Name = b.Str
					case ctrlAttrMcastGrpID:
						g.ID = uint32(b.Int)
					}
				}

				f.Groups = append(f.Groups, g)
			}
		}
	}

	return f
}

// FindGroup returns the id of the multicast group name in f.
func FindGroup(f genetlink.Family, name string) (uint32, error) {
	for _, g := range f.Groups {
		if g.Name == name {
			return g.ID, nil
		}
	}

	return 0, fmt.Errorf("%w: %q in family %q", nlerr.ErrUnknownGroup, name, f.Name)
}
