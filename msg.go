package nlmsg

import (
	"fmt"
	"math"

	"github.com/josharian/native"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const SizeofHeader = unix.NLMSG_HDRLEN

// Header is struct nlmsghdr. Len is recomputed whenever a message is
// encoded and is only meaningful after decoding.
type Header struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	Pid   uint32
}

func (self Header) put(b []byte) {
	native.Endian.PutUint32(b[0:], self.Len)
	native.Endian.PutUint16(b[4:], self.Type)
	native.Endian.PutUint16(b[6:], self.Flags)
	native.Endian.PutUint32(b[8:], self.Seq)
	native.Endian.PutUint32(b[12:], self.Pid)
}

func (self Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, SizeofHeader)
	self.put(b)
	return b, nil
}

func parseHeader(b []byte) Header {
	return Header{
		Len:   native.Endian.Uint32(b[0:]),
		Type:  native.Endian.Uint16(b[4:]),
		Flags: native.Endian.Uint16(b[6:]),
		Seq:   native.Endian.Uint32(b[8:]),
		Pid:   native.Endian.Uint32(b[12:]),
	}
}

// DecodeHeader decodes the header at the start of b and checks that the
// declared length is sane and fits in b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < SizeofHeader {
		return Header{}, decodeError("header", 0, NLE_MSG_TOOSHORT)
	}
	hdr := parseHeader(b)
	if hdr.Len < SizeofHeader {
		return hdr, decodeError(fmt.Sprintf("header length %d", hdr.Len), 0, NLE_RANGE)
	}
	if int64(hdr.Len) > int64(len(b)) {
		return hdr, decodeError(fmt.Sprintf("message of %d bytes", hdr.Len), 0, NLE_MSG_TRUNC)
	}
	return hdr, nil
}

func (self Header) Multi() bool {
	return self.Flags&unix.NLM_F_MULTI != 0
}

func (self Header) FlagNames() []string {
	return NlmFlags.Names(uint32(self.Flags))
}

// SetFlags accepts anything NlmFlags.Encode does.
func (self *Header) SetFlags(v interface{}) error {
	if f, err := NlmFlags.Encode(v); err != nil {
		return err
	} else if f > math.MaxUint16 {
		return errors.Wrapf(NLE_RANGE, "header flags 0x%x", f)
	} else {
		self.Flags = uint16(f)
		return nil
	}
}

func (self Header) String() string {
	return fmt.Sprintf("%s len=%d flags=%s seq=%d pid=%d",
		MessageTypeName(self.Type), self.Len, NlmFlags.String(uint32(self.Flags)), self.Seq, self.Pid)
}

// Message is implemented by every decoded message kind.
type Message interface {
	NlHeader() *Header
	// Attributes returns nil for kinds without an attribute grammar.
	Attributes() AttrList
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// marshalMessage lays out the header followed by each part padded to the
// alignment, updating hdr.Len.
func marshalMessage(hdr *Header, parts ...[]byte) []byte {
	size := SizeofHeader
	for _, p := range parts {
		size += NLMSG_ALIGN(len(p))
	}
	hdr.Len = uint32(size)
	b := make([]byte, size)
	hdr.put(b)
	off := SizeofHeader
	for _, p := range parts {
		copy(b[off:], p)
		off += NLMSG_ALIGN(len(p))
	}
	return b
}

// body returns the bytes of one message following the header.
func body(b []byte) (Header, []byte, error) {
	if hdr, err := DecodeHeader(b); err != nil {
		return hdr, nil, err
	} else {
		return hdr, b[SizeofHeader:hdr.Len], nil
	}
}

// GenericMessage is a message with an opaque body.
type GenericMessage struct {
	Header
	Data []byte
}

func (self *GenericMessage) NlHeader() *Header { return &self.Header }

func (self *GenericMessage) Attributes() AttrList { return nil }

func (self *GenericMessage) MarshalBinary() ([]byte, error) {
	return marshalMessage(&self.Header, self.Data), nil
}

func (self *GenericMessage) UnmarshalBinary(b []byte) error {
	if hdr, data, err := body(b); err != nil {
		return err
	} else {
		self.Header = hdr
		self.Data = append([]byte(nil), data...)
		return nil
	}
}

var messageTypeNames = map[uint16]string{
	unix.NLMSG_NOOP:    "NLMSG_NOOP",
	unix.NLMSG_ERROR:   "NLMSG_ERROR",
	unix.NLMSG_DONE:    "NLMSG_DONE",
	unix.NLMSG_OVERRUN: "NLMSG_OVERRUN",
	unix.RTM_NEWLINK:   "RTM_NEWLINK",
	unix.RTM_DELLINK:   "RTM_DELLINK",
	unix.RTM_GETLINK:   "RTM_GETLINK",
	unix.RTM_SETLINK:   "RTM_SETLINK",
}

func MessageTypeName(t uint16) string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", t)
}
