// Package nlattr implements encoding and decoding of netlink attribute
// streams as ordered sequences of typed values.
package nlattr

import (
	"encoding/binary"
	"fmt"

	"github.com/mdlayher/netlink/nlenc"
	"github.com/mdlayher/wifiscan/internal/nlerr"
)

const (
	// MaxDepth is the deepest level of nesting accepted by Marshal and
	// Unmarshal. Top-level attributes are at depth 1.
	MaxDepth = 16

	headerLen = 4

	// Type flag bits defined by the kernel.
	flagNested       = 0x8000
	flagNetByteorder = 0x4000
	typeMask         = ^uint16(flagNested | flagNetByteorder)
)

// A Kind identifies which value an Attribute carries.
type Kind int

// Possible Kind values.
const (
	KindRaw Kind = iota
	KindInteger
	KindString
	KindNested
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindNested:
		return "nested"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// An Attribute is a single netlink attribute. Kind selects which of the value
// fields is meaningful:
//   - KindRaw: Data
//   - KindInteger: Int, interpreted using Width, Signed and BigEndian
//   - KindString: Str, carried on the wire with a trailing NUL
//   - KindNested: Nested
type Attribute struct {
	// Type is the attribute's type id with the kernel's flag bits removed.
	Type uint16
	Kind Kind

	// Width is the size of an integer value in bytes: 1, 2, 4 or 8.
	Width     int
	Signed    bool
	BigEndian bool
	Int       uint64

	// Data aliases the buffer passed to Unmarshal.
	Data   []byte
	Str    string
	Nested []Attribute
}

// Bytes creates a raw Attribute.
func Bytes(typ uint16, b []byte) Attribute {
	return Attribute{Type: typ, Kind: KindRaw, Data: b}
}

// Flag creates an Attribute with no payload, which the kernel treats as a
// boolean flag.
func Flag(typ uint16) Attribute { return Bytes(typ, nil) }

// Uint8 creates an 8-bit integer Attribute.
func Uint8(typ uint16, v uint8) Attribute { return integer(typ, 1, false, uint64(v)) }

// Uint16 creates a 16-bit integer Attribute.
func Uint16(typ uint16, v uint16) Attribute { return integer(typ, 2, false, uint64(v)) }

// Uint32 creates a 32-bit integer Attribute.
func Uint32(typ uint16, v uint32) Attribute { return integer(typ, 4, false, uint64(v)) }

// Uint64 creates a 64-bit integer Attribute.
func Uint64(typ uint16, v uint64) Attribute { return integer(typ, 8, false, v) }

// Int8 creates a signed 8-bit integer Attribute.
func Int8(typ uint16, v int8) Attribute { return integer(typ, 1, true, uint64(int64(v))) }

// Int32 creates a signed 32-bit integer Attribute.
func Int32(typ uint16, v int32) Attribute { return integer(typ, 4, true, uint64(int64(v))) }

// BigUint16 creates a 16-bit integer Attribute in network byte order.
func BigUint16(typ uint16, v uint16) Attribute {
	a := integer(typ, 2, false, uint64(v))
	a.BigEndian = true
	return a
}

// BigUint32 creates a 32-bit integer Attribute in network byte order.
func BigUint32(typ uint16, v uint32) Attribute {
	a := integer(typ, 4, false, uint64(v))
	a.BigEndian = true
	return a
}

func integer(typ uint16, width int, signed bool, v uint64) Attribute {
	return Attribute{Type: typ, Kind: KindInteger, Width: width, Signed: signed, Int: v}
}

// String creates a NUL-terminated string Attribute.
func String(typ uint16, s string) Attribute {
	return Attribute{Type: typ, Kind: KindString, Str: s}
}

// Nest creates an Attribute containing attrs, in order.
func Nest(typ uint16, attrs ...Attribute) Attribute {
	return Attribute{Type: typ, Kind: KindNested, Nested: attrs}
}

// Uint64 returns the integer value of a.
func (a Attribute) Uint64() uint64 { return a.Int }

// Int64 returns the integer value of a, sign extended when a is Signed.
func (a Attribute) Int64() int64 { return int64(a.Int) }

// Payload returns the raw bytes of a as they are carried on the wire, without
// the attribute header and padding.
func (a Attribute) Payload() ([]byte, error) {
	b, err := a.appendValue(nil, 1)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Decode returns the children of a. Raw attributes are decoded on demand
// using s, which allows containers unknown to a schema to be inspected later.
func (a Attribute) Decode(s *Schema) ([]Attribute, error) {
	switch a.Kind {
	case KindNested:
		return a.Nested, nil
	case KindRaw:
		return parse(a.Data, s, 1)
	default:
		return nil, fmt.Errorf("%w: cannot decode %s attribute %d as nested",
			nlerr.ErrMalformedAttribute, a.Kind, a.Type)
	}
}

// Find returns the first attribute of type typ in attrs.
func Find(attrs []Attribute, typ uint16) (Attribute, bool) {
	for _, a := range attrs {
		if a.Type == typ {
			return a, true
		}
	}

	return Attribute{}, false
}

// Contains reports whether attrs contains an attribute of type typ.
func Contains(attrs []Attribute, typ uint16) bool {
	_, ok := Find(attrs, typ)
	return ok
}

// Marshal encodes attrs in order, padding each to a 4 byte boundary.
func Marshal(attrs []Attribute) ([]byte, error) {
	return appendAttrs(nil, attrs, 1)
}

func appendAttrs(b []byte, attrs []Attribute, depth int) ([]byte, error) {
	if len(attrs) > 0 && depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting exceeds depth %d", nlerr.ErrMalformedAttribute, MaxDepth)
	}

	for _, a := range attrs {
		if a.Type&^typeMask != 0 {
			return nil, fmt.Errorf("%w: type %#x overlaps flag bits", nlerr.ErrMalformedAttribute, a.Type)
		}

		start := len(b)
		b = append(b, 0, 0, 0, 0)

		var err error
		b, err = a.appendValue(b, depth)
		if err != nil {
			return nil, err
		}

		n := len(b) - start
		if n > 0xffff {
			return nil, fmt.Errorf("%w: attribute %d is %d bytes long",
				nlerr.ErrMalformedAttribute, a.Type, n)
		}

		typ := a.Type
		switch {
		case a.Kind == KindNested:
			typ |= flagNested
		case a.Kind == KindInteger && a.BigEndian:
			typ |= flagNetByteorder
		}

		nlenc.PutUint16(b[start:start+2], uint16(n))
		nlenc.PutUint16(b[start+2:start+4], typ)

		for i := 0; i < pad(n); i++ {
			b = append(b, 0)
		}
	}

	return b, nil
}

func (a Attribute) appendValue(b []byte, depth int) ([]byte, error) {
	switch a.Kind {
	case KindRaw:
		return append(b, a.Data...), nil
	case KindString:
		return append(b, nlenc.Bytes(a.Str)...), nil
	case KindNested:
		return appendAttrs(b, a.Nested, depth+1)
	case KindInteger:
		return a.appendInt(b)
	default:
		return nil, fmt.Errorf("%w: attribute %d has invalid kind %d",
			nlerr.ErrMalformedAttribute, a.Type, int(a.Kind))
	}
}

func (a Attribute) appendInt(b []byte) ([]byte, error) {
	switch a.Width {
	case 1:
		return append(b, uint8(a.Int)), nil
	case 2:
		if a.BigEndian {
			return binary.BigEndian.AppendUint16(b, uint16(a.Int)), nil
		}
		return append(b, nlenc.Uint16Bytes(uint16(a.Int))...), nil
	case 4:
		if a.BigEndian {
			return binary.BigEndian.AppendUint32(b, uint32(a.Int)), nil
		}
		return append(b, nlenc.Uint32Bytes(uint32(a.Int))...), nil
	case 8:
		if a.BigEndian {
			return binary.BigEndian.AppendUint64(b, a.Int), nil
		}
		return append(b, nlenc.Uint64Bytes(a.Int)...), nil
	default:
		return nil, fmt.Errorf("%w: attribute %d has invalid integer width %d",
			nlerr.ErrMalformedAttribute, a.Type, a.Width)
	}
}

// Unmarshal decodes an attribute stream. Attributes known to s are decoded
// to the shape it declares; all others are returned as KindRaw.
func Unmarshal(b []byte, s *Schema) ([]Attribute, error) {
	return parse(b, s, 1)
}

func parse(b []byte, s *Schema, depth int) ([]Attribute, error) {
	if len(b) > 0 && depth > MaxDepth {
		return nil, fmt.Errorf("%w: %s: nesting exceeds depth %d",
			nlerr.ErrMalformedAttribute, s.name(), MaxDepth)
	}

	var attrs []Attribute
	for i := 0; i < len(b); {
		rest := b[i:]
		if len(rest) < headerLen {
			if !zero(rest) {
				return nil, fmt.Errorf("%w: %s: %d trailing bytes",
					nlerr.ErrMalformedAttribute, s.name(), len(rest))
			}

			// Trailing padding.
			break
		}

		n := int(nlenc.Uint16(rest[0:2]))
		raw := nlenc.Uint16(rest[2:4])
		typ := raw & typeMask

		switch {
		case n < headerLen:
			return nil, fmt.Errorf("%w: %s: %s: declared length %d shorter than header",
				nlerr.ErrMalformedAttribute, s.name(), s.AttrName(typ), n)
		case n > len(rest):
			return nil, fmt.Errorf("%w: %s: %s: declared length %d exceeds %d remaining bytes",
				nlerr.ErrMalformedAttribute, s.name(), s.AttrName(typ), n, len(rest))
		}

		a, err := decode(typ, raw, rest[headerLen:n], s.lookup(typ), depth)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", s.name(), s.AttrName(typ), err)
		}

		attrs = append(attrs, a)
		i += align(n)
	}

	return attrs, nil
}

func decode(typ, raw uint16, v []byte, sh *Shape, depth int) (Attribute, error) {
	a := Attribute{Type: typ, Kind: KindRaw, Data: v}
	if sh == nil {
		return a, nil
	}

	switch sh.Kind {
	case KindInteger:
		if len(v) != sh.Width {
			// Not the declared width; keep the bytes.
			return a, nil
		}

		a = Attribute{
			Type:      typ,
			Kind:      KindInteger,
			Width:     sh.Width,
			Signed:    sh.Signed,
			BigEndian: sh.BigEndian || raw&flagNetByteorder != 0,
		}
		a.Int = a.decodeInt(v)
	case KindString:
		a = Attribute{Type: typ, Kind: KindString, Str: nlenc.String(v)}
	case KindNested:
		children, err := parse(v, sh.Nested, depth+1)
		if err != nil {
			return Attribute{}, err
		}

		a = Attribute{Type: typ, Kind: KindNested, Nested: children}
	}

	return a, nil
}

func (a Attribute) decodeInt(v []byte) uint64 {
	var u uint64
	switch len(v) {
	case 1:
		u = uint64(v[0])
	case 2:
		if a.BigEndian {
			u = uint64(binary.BigEndian.Uint16(v))
		} else {
			u = uint64(nlenc.Uint16(v))
		}
	case 4:
		if a.BigEndian {
			u = uint64(binary.BigEndian.Uint32(v))
		} else {
			u = uint64(nlenc.Uint32(v))
		}
	case 8:
		if a.BigEndian {
			u = binary.BigEndian.Uint64(v)
		} else {
			u = nlenc.Uint64(v)
		}
	}

	if !a.Signed {
		return u
	}

	switch len(v) {
	case 1:
		return uint64(int64(int8(u)))
	case 2:
		return uint64(int64(int16(u)))
	case 4:
		return uint64(int64(int32(u)))
	default:
		return u
	}
}

func align(n int) int { return n + pad(n) }

func pad(n int) int { return (headerLen - n%headerLen) % headerLen }

func zero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}

	return true
}
