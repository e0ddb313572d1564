package nlattr

import "fmt"

// A Schema describes the attributes which may appear in one attribute stream:
// their names for diagnostics and the shape used to decode their values.
//
// A Schema never makes decoding fail: ids it does not describe, and values
// which do not match the described shape, decode as KindRaw.
type Schema struct {
	Name  string
	Attrs map[uint16]Shape

	// Elem, if set, describes every id missing from Attrs. It is used for
	// indexed arrays where the attribute id carries no meaning.
	Elem *Shape
}

// A Shape is the expected encoding of one attribute's value.
type Shape struct {
	Name      string
	Kind      Kind
	Width     int
	Signed    bool
	BigEndian bool
	Nested    *Schema
}

// AsBytes describes a raw attribute.
func AsBytes(name string) Shape { return Shape{Name: name, Kind: KindRaw} }

// AsFlag describes an attribute with no payload.
func AsFlag(name string) Shape { return AsBytes(name) }

// AsString describes a NUL-terminated string attribute.
func AsString(name string) Shape { return Shape{Name: name, Kind: KindString} }

// AsUint8 describes an 8-bit integer attribute.
func AsUint8(name string) Shape { return Shape{Name: name, Kind: KindInteger, Width: 1} }

// AsUint16 describes a 16-bit integer attribute.
func AsUint16(name string) Shape { return Shape{Name: name, Kind: KindInteger, Width: 2} }

// AsUint32 describes a 32-bit integer attribute.
func AsUint32(name string) Shape { return Shape{Name: name, Kind: KindInteger, Width: 4} }

// AsUint64 describes a 64-bit integer attribute.
func AsUint64(name string) Shape { return Shape{Name: name, Kind: KindInteger, Width: 8} }

// AsInt8 describes a signed 8-bit integer attribute.
func AsInt8(name string) Shape {
	return Shape{Name: name, Kind: KindInteger, Width: 1, Signed: true}
}

// AsInt32 describes a signed 32-bit integer attribute.
func AsInt32(name string) Shape {
	return Shape{Name: name, Kind: KindInteger, Width: 4, Signed: true}
}

// AsNested describes an attribute containing a stream described by s.
func AsNested(name string, s *Schema) Shape {
	return Shape{Name: name, Kind: KindNested, Nested: s}
}

// AttrName returns the name of attribute typ, or a placeholder containing its
// numeric id. It is safe to call on a nil Schema.
func (s *Schema) AttrName(typ uint16) string {
	if sh := s.lookup(typ); sh != nil && sh.Name != "" {
		return sh.Name
	}

	return fmt.Sprintf("attr(%d)", typ)
}

func (s *Schema) lookup(typ uint16) *Shape {
	if s == nil {
		return nil
	}
	if sh, ok := s.Attrs[typ]; ok {
		return &sh
	}

	return s.Elem
}

func (s *Schema) name() string {
	if s == nil || s.Name == "" {
		return "attributes"
	}

	return s.Name
}
