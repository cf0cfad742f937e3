package nlmsg

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"net"
	"strings"

	"github.com/josharian/native"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const NLA_HDRLEN = unix.NLA_HDRLEN

const NLA_TYPE_MASK = ^uint16(unix.NLA_F_NESTED | unix.NLA_F_NET_BYTEORDER)

// AttrKind selects how an attribute value is encoded.
type AttrKind uint16

const (
	NLA_UNSPEC AttrKind = iota
	NLA_U8
	NLA_U16
	NLA_U32
	NLA_U64
	NLA_NUL_STRING
	NLA_HWADDR
	NLA_NESTED
)

var attrKindNames = [...]string{
	NLA_UNSPEC:     "unspec",
	NLA_U8:         "u8",
	NLA_U16:        "u16",
	NLA_U32:        "u32",
	NLA_U64:        "u64",
	NLA_NUL_STRING: "string",
	NLA_HWADDR:     "hwaddr",
	NLA_NESTED:     "nested",
}

func (self AttrKind) String() string {
	if int(self) < len(attrKindNames) {
		return attrKindNames[self]
	}
	return fmt.Sprintf("kind(%d)", uint16(self))
}

// Attr is a single netlink attribute. Value holds []byte for NLA_UNSPEC,
// the matching unsigned integer type for NLA_U8..NLA_U64, a string for
// NLA_NUL_STRING and NLA_HWADDR, and an AttrList for NLA_NESTED.
//
// Length is the unpadded size including the 4 byte attribute header. It is
// filled in on decode and recomputed on encode.
type Attr struct {
	Length uint16
	Type   uint16
	Kind   AttrKind
	Value  interface{}
}

func NewUnspecAttr(t uint16, v []byte) Attr { return Attr{Type: t, Kind: NLA_UNSPEC, Value: v} }
func NewU8Attr(t uint16, v uint8) Attr      { return Attr{Type: t, Kind: NLA_U8, Value: v} }
func NewU16Attr(t uint16, v uint16) Attr    { return Attr{Type: t, Kind: NLA_U16, Value: v} }
func NewU32Attr(t uint16, v uint32) Attr    { return Attr{Type: t, Kind: NLA_U32, Value: v} }
func NewU64Attr(t uint16, v uint64) Attr    { return Attr{Type: t, Kind: NLA_U64, Value: v} }
func NewStringAttr(t uint16, v string) Attr { return Attr{Type: t, Kind: NLA_NUL_STRING, Value: v} }
func NewHwAddrAttr(t uint16, v string) Attr { return Attr{Type: t, Kind: NLA_HWADDR, Value: v} }

// NewNestedAttr marks the type with NLA_F_NESTED.
func NewNestedAttr(t uint16, v AttrList) Attr {
	return Attr{Type: t | unix.NLA_F_NESTED, Kind: NLA_NESTED, Value: v}
}

// Field returns the attribute type without the nested and byte order flags.
func (self Attr) Field() uint16 {
	return self.Type & NLA_TYPE_MASK
}

func (self Attr) typeError() error {
	return &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: self.Value}
}

func (self Attr) valueBytes() ([]byte, error) {
	switch self.Kind {
	case NLA_UNSPEC:
		if self.Value == nil {
			return nil, nil
		} else if v, ok := self.Value.([]byte); ok {
			return v, nil
		}
	case NLA_U8:
		if v, ok := self.Value.(uint8); ok {
			return []byte{v}, nil
		}
	case NLA_U16:
		if v, ok := self.Value.(uint16); ok {
			b := make([]byte, 2)
			native.Endian.PutUint16(b, v)
			return b, nil
		}
	case NLA_U32:
		if v, ok := self.Value.(uint32); ok {
			b := make([]byte, 4)
			native.Endian.PutUint32(b, v)
			return b, nil
		}
	case NLA_U64:
		if v, ok := self.Value.(uint64); ok {
			b := make([]byte, 8)
			native.Endian.PutUint64(b, v)
			return b, nil
		}
	case NLA_NUL_STRING:
		if v, ok := self.Value.(string); ok {
			b := []byte(v)
			if len(b) == 0 || b[len(b)-1] != 0 {
				b = append(b, 0)
			}
			return b, nil
		}
	case NLA_HWADDR:
		if v, ok := self.Value.(string); ok {
			return parseHwAddr(v)
		}
	case NLA_NESTED:
		if v, ok := self.Value.(AttrList); ok {
			return v.MarshalBinary()
		} else if self.Value == nil {
			return nil, nil
		}
	default:
		return nil, errors.Wrapf(NLE_INVAL, "attribute %d has unsupported kind %v", self.Field(), self.Kind)
	}
	return nil, self.typeError()
}

// MarshalBinary encodes the attribute with its trailing padding.
func (self Attr) MarshalBinary() ([]byte, error) {
	if v, err := self.valueBytes(); err != nil {
		return nil, err
	} else if length := NLA_HDRLEN + len(v); length > math.MaxUint16 {
		return nil, errors.Wrapf(NLE_MSGSIZE, "attribute %d is %d bytes", self.Field(), length)
	} else {
		b := make([]byte, NLA_ALIGN(length))
		native.Endian.PutUint16(b, uint16(length))
		native.Endian.PutUint16(b[2:], self.Type)
		copy(b[NLA_HDRLEN:], v)
		return b, nil
	}
}

// DecodeAttr decodes the attribute at the start of b. The kind is looked up
// in rule by type, and types missing from rule decode as NLA_UNSPEC. The
// returned count is the padded length consumed from b.
func DecodeAttr(b []byte, rule map[uint16]AttrKind) (Attr, int, error) {
	return decodeAttr(b, MapPolicy{Rule: rule})
}

func decodeAttr(b []byte, policy MapPolicy) (Attr, int, error) {
	var attr Attr
	if len(b) < NLA_HDRLEN {
		return attr, 0, decodeError("attribute header", 0, NLE_MSG_TOOSHORT)
	}
	length := int(native.Endian.Uint16(b))
	attr.Length = uint16(length)
	attr.Type = native.Endian.Uint16(b[2:])
	if length < NLA_HDRLEN {
		return attr, 0, decodeError("attribute length", 0, NLE_RANGE)
	}
	if length > len(b) {
		return attr, 0, decodeError("attribute", 0, NLE_MSG_TRUNC)
	}
	attr.Kind = policy.Rule[attr.Field()]

	value := b[NLA_HDRLEN:length]
	width := 0
	switch attr.Kind {
	case NLA_UNSPEC:
		attr.Value = append([]byte(nil), value...)
	case NLA_U8:
		width = 1
	case NLA_U16:
		width = 2
	case NLA_U32:
		width = 4
	case NLA_U64:
		width = 8
	case NLA_NUL_STRING:
		if i := bytes.IndexByte(value, 0); i >= 0 {
			value = value[:i]
		}
		attr.Value = string(value)
	case NLA_HWADDR:
		if len(value) == SizeofHwAddr {
			attr.Value = net.HardwareAddr(value).String()
		} else {
			// tunnel devices carry addresses of other sizes
			attr.Kind = NLA_UNSPEC
			attr.Value = append([]byte(nil), value...)
		}
	case NLA_NESTED:
		sub := policy.Nested[attr.Field()]
		if list, err := sub.Parse(value); err != nil {
			if e, ok := err.(*DecodeError); ok {
				e.Offset += NLA_HDRLEN
			}
			return attr, 0, err
		} else {
			attr.Value = list
		}
	default:
		return attr, 0, decodeError("attribute kind", 0, NLE_INVAL)
	}
	if width != 0 {
		if len(value) != width {
			return attr, 0, decodeError(fmt.Sprintf("%v attribute %d", attr.Kind, attr.Field()), NLA_HDRLEN, NLE_RANGE)
		}
		switch width {
		case 1:
			attr.Value = value[0]
		case 2:
			attr.Value = native.Endian.Uint16(value)
		case 4:
			attr.Value = native.Endian.Uint32(value)
		case 8:
			attr.Value = native.Endian.Uint64(value)
		}
	}

	n := NLA_ALIGN(length)
	if n > len(b) {
		n = len(b)
	}
	return attr, n, nil
}

const SizeofHwAddr = 6

func parseHwAddr(s string) ([]byte, error) {
	parts := strings.Split(s, ":")
	if len(parts) != SizeofHwAddr {
		return nil, errors.Wrapf(NLE_RANGE, "hardware address %q", s)
	}
	ret := make([]byte, len(parts))
	for i, part := range parts {
		if len(part) != 2 {
			return nil, errors.Wrapf(NLE_INVAL, "hardware address %q", s)
		}
		if v, err := hex.DecodeString(part); err != nil {
			return nil, errors.Wrapf(NLE_INVAL, "hardware address %q", s)
		} else {
			ret[i] = v[0]
		}
	}
	return ret, nil
}

// Uint returns the value of any unsigned integer attribute.
func (self Attr) Uint() (uint64, error) {
	switch v := self.Value.(type) {
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	}
	return 0, &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: uint64(0)}
}

func (self Attr) Uint8() (uint8, error) {
	if v, ok := self.Value.(uint8); ok && self.Kind == NLA_U8 {
		return v, nil
	}
	return 0, &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: uint8(0)}
}

func (self Attr) Uint16() (uint16, error) {
	if v, ok := self.Value.(uint16); ok && self.Kind == NLA_U16 {
		return v, nil
	}
	return 0, &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: uint16(0)}
}

func (self Attr) Uint32() (uint32, error) {
	if v, ok := self.Value.(uint32); ok && self.Kind == NLA_U32 {
		return v, nil
	}
	return 0, &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: uint32(0)}
}

func (self Attr) Uint64() (uint64, error) {
	if v, ok := self.Value.(uint64); ok && self.Kind == NLA_U64 {
		return v, nil
	}
	return 0, &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: uint64(0)}
}

// Str returns the value of a string or hardware address attribute.
func (self Attr) Str() (string, error) {
	if v, ok := self.Value.(string); ok && (self.Kind == NLA_NUL_STRING || self.Kind == NLA_HWADDR) {
		return v, nil
	}
	return "", &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: ""}
}

// HardwareAddr also accepts the raw bytes of an address that was not
// Ethernet sized.
func (self Attr) HardwareAddr() (net.HardwareAddr, error) {
	switch v := self.Value.(type) {
	case string:
		if self.Kind == NLA_HWADDR {
			return parseHwAddr(v)
		}
	case []byte:
		if self.Kind == NLA_UNSPEC {
			return net.HardwareAddr(v), nil
		}
	}
	return nil, &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: net.HardwareAddr(nil)}
}

func (self Attr) Bytes() ([]byte, error) {
	if self.Kind == NLA_UNSPEC {
		if v, ok := self.Value.([]byte); ok || self.Value == nil {
			return v, nil
		}
	}
	return nil, &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: []byte(nil)}
}

func (self Attr) Nested() (AttrList, error) {
	if v, ok := self.Value.(AttrList); ok && self.Kind == NLA_NESTED {
		return v, nil
	}
	return nil, &ValueTypeError{Type: self.Field(), Want: self.Kind, Got: AttrList(nil)}
}

func (self Attr) String() string {
	switch v := self.Value.(type) {
	case []byte:
		return hex.EncodeToString(v)
	case AttrList:
		var comps []string
		for _, attr := range v {
			comps = append(comps, fmt.Sprintf("%d: %s", attr.Field(), attr))
		}
		return fmt.Sprintf("[%s]", strings.Join(comps, ", "))
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}

type AttrList []Attr

// Find returns the last attribute of the given type.
func (self AttrList) Find(field uint16) (Attr, bool) {
	for i := len(self) - 1; i >= 0; i-- {
		if self[i].Field() == field {
			return self[i], true
		}
	}
	return Attr{}, false
}

// Get returns the value of the attribute of the given type, or nil.
func (self AttrList) Get(field uint16) interface{} {
	if attr, ok := self.Find(field); ok {
		return attr.Value
	}
	return nil
}

// Set replaces the attribute of the same type, or appends it.
func (self *AttrList) Set(attr Attr) {
	for i := len(*self) - 1; i >= 0; i-- {
		if (*self)[i].Field() == attr.Field() {
			(*self)[i] = attr
			return
		}
	}
	*self = append(*self, attr)
}

func (self AttrList) MarshalBinary() ([]byte, error) {
	var ret []byte
	for _, attr := range self {
		if b, err := attr.MarshalBinary(); err != nil {
			return nil, err
		} else {
			ret = append(ret, b...)
		}
	}
	return ret, nil
}
