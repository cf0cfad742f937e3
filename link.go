package nlmsg

import (
	"fmt"

	"github.com/josharian/native"
	"golang.org/x/sys/unix"
)

const SizeofIfInfomsg = unix.SizeofIfInfomsg

// IfInfomsg is struct ifinfomsg, the fixed block of RTM_*LINK messages.
type IfInfomsg struct {
	Family uint8
	Unused uint8
	Type   uint16
	Index  uint32
	Flags  uint32
	Change uint32
}

func (self IfInfomsg) MarshalBinary() ([]byte, error) {
	b := make([]byte, SizeofIfInfomsg)
	b[0] = self.Family
	b[1] = self.Unused
	native.Endian.PutUint16(b[2:], self.Type)
	native.Endian.PutUint32(b[4:], self.Index)
	native.Endian.PutUint32(b[8:], self.Flags)
	native.Endian.PutUint32(b[12:], self.Change)
	return b, nil
}

func parseIfInfomsg(b []byte) IfInfomsg {
	return IfInfomsg{
		Family: b[0],
		Unused: b[1],
		Type:   native.Endian.Uint16(b[2:]),
		Index:  native.Endian.Uint32(b[4:]),
		Flags:  native.Endian.Uint32(b[8:]),
		Change: native.Endian.Uint32(b[12:]),
	}
}

// LinkMessage is RTM_NEWLINK, RTM_DELLINK, RTM_GETLINK or RTM_SETLINK.
type LinkMessage struct {
	Header
	Info  IfInfomsg
	Attrs AttrList
}

// NewLinkMessage returns a message with all flags marked as changed.
func NewLinkMessage() *LinkMessage {
	return &LinkMessage{
		Info: IfInfomsg{
			Family: unix.AF_UNSPEC,
			Change: 0xFFFFFFFF,
		},
	}
}

// NewGetLinkRequest returns a dump request for all links.
func NewGetLinkRequest() *LinkMessage {
	self := NewLinkMessage()
	self.Header.Type = unix.RTM_GETLINK
	self.Header.Flags = unix.NLM_F_REQUEST | unix.NLM_F_ACK | unix.NLM_F_DUMP
	return self
}

// NewNewLinkRequest returns a request to create or update a link.
func NewNewLinkRequest() *LinkMessage {
	self := NewLinkMessage()
	self.Header.Type = unix.RTM_NEWLINK
	self.Header.Flags = unix.NLM_F_REQUEST | unix.NLM_F_ACK
	return self
}

func (self *LinkMessage) NlHeader() *Header { return &self.Header }

func (self *LinkMessage) Attributes() AttrList { return self.Attrs }

func (self *LinkMessage) MarshalBinary() ([]byte, error) {
	info, _ := self.Info.MarshalBinary()
	if attrs, err := self.Attrs.MarshalBinary(); err != nil {
		return nil, err
	} else {
		return marshalMessage(&self.Header, info, attrs), nil
	}
}

func (self *LinkMessage) UnmarshalBinary(b []byte) error {
	hdr, data, err := body(b)
	if err != nil {
		return err
	}
	if len(data) < SizeofIfInfomsg {
		return decodeError("ifinfomsg", SizeofHeader, NLE_MSG_TOOSHORT)
	}
	attrs, err := RouteLinkPolicy.Parse(data[NLMSG_ALIGN(SizeofIfInfomsg):])
	if err != nil {
		if e, ok := err.(*DecodeError); ok {
			e.Offset += SizeofHeader + NLMSG_ALIGN(SizeofIfInfomsg)
		}
		return err
	}
	self.Header = hdr
	self.Info = parseIfInfomsg(data)
	self.Attrs = attrs
	return nil
}

// SetLinkFlags sets the IFF flags from an integer or a list of names.
func (self *LinkMessage) SetLinkFlags(v interface{}) error {
	if f, err := IffFlags.Encode(v); err != nil {
		return err
	} else {
		self.Info.Flags = f
		return nil
	}
}

func (self *LinkMessage) LinkFlagNames() []string {
	return IffFlags.Names(self.Info.Flags)
}

func (self *LinkMessage) LinkType() LinkType {
	return LinkType(self.Info.Type)
}

func (self *LinkMessage) SetLinkType(name string) error {
	if t, err := ParseLinkType(name); err != nil {
		return err
	} else {
		self.Info.Type = uint16(t)
		return nil
	}
}

// Attr returns the attribute with the given IFLA name.
func (self *LinkMessage) Attr(name string) (Attr, error) {
	return RouteLinkPolicy.Lookup(self.Attrs, name)
}

func (self *LinkMessage) SetAttr(name string, value interface{}) error {
	if attr, err := RouteLinkPolicy.NewAttr(name, value); err != nil {
		return err
	} else {
		self.Attrs.Set(attr)
		return nil
	}
}

func (self *LinkMessage) String() string {
	return fmt.Sprintf("%s family=%d type=%v index=%d flags=%s %s",
		self.Header, self.Info.Family, self.LinkType(), self.Info.Index,
		IffFlags.String(self.Info.Flags), RouteLinkPolicy.Dump(self.Attrs))
}
