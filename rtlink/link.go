// Package rtlink presents RTM_*LINK messages as network interfaces.
package rtlink

import (
	"net"

	"github.com/hkwi/nlmsg"
	"github.com/pkg/errors"
)

type Link struct {
	Index       uint32
	Name        string
	Type        nlmsg.LinkType
	Flags       uint32
	Address     net.HardwareAddr
	Broadcast   net.HardwareAddr
	MTU         uint32
	TxQLen      uint32
	Group       uint32
	Promiscuity uint32
	NumTxQueues uint32
	NumRxQueues uint32
	OperState   OperState
	LinkMode    LinkMode
	Carrier     bool
	Alias       string
	Qdisc       string
	Master      uint32
	Kind        string // IFLA_INFO_KIND, empty for physical devices
	AltNames    []string
	Stats       *nlmsg.RtnlLinkStats64
}

// FromMessage builds a Link from a decoded link message.
func FromMessage(m *nlmsg.LinkMessage) (Link, error) {
	self := Link{
		Index: m.Info.Index,
		Type:  m.LinkType(),
		Flags: m.Info.Flags,
	}
	for _, attr := range m.Attrs {
		var err error
		switch attr.Field() {
		case nlmsg.IFLA_IFNAME:
			self.Name, err = attr.Str()
		case nlmsg.IFLA_ADDRESS:
			self.Address, err = attr.HardwareAddr()
		case nlmsg.IFLA_BROADCAST:
			self.Broadcast, err = attr.HardwareAddr()
		case nlmsg.IFLA_MTU:
			self.MTU, err = attr.Uint32()
		case nlmsg.IFLA_TXQLEN:
			self.TxQLen, err = attr.Uint32()
		case nlmsg.IFLA_GROUP:
			self.Group, err = attr.Uint32()
		case nlmsg.IFLA_PROMISCUITY:
			self.Promiscuity, err = attr.Uint32()
		case nlmsg.IFLA_NUM_TX_QUEUES:
			self.NumTxQueues, err = attr.Uint32()
		case nlmsg.IFLA_NUM_RX_QUEUES:
			self.NumRxQueues, err = attr.Uint32()
		case nlmsg.IFLA_MASTER:
			self.Master, err = attr.Uint32()
		case nlmsg.IFLA_IFALIAS:
			self.Alias, err = attr.Str()
		case nlmsg.IFLA_QDISC:
			self.Qdisc, err = attr.Str()
		case nlmsg.IFLA_OPERSTATE:
			var v uint8
			v, err = attr.Uint8()
			self.OperState = OperState(v)
		case nlmsg.IFLA_LINKMODE:
			var v uint8
			v, err = attr.Uint8()
			self.LinkMode = LinkMode(v)
		case nlmsg.IFLA_CARRIER:
			var v uint8
			v, err = attr.Uint8()
			self.Carrier = v != 0
		case nlmsg.IFLA_LINKINFO:
			self.Kind, err = linkKind(attr)
		case nlmsg.IFLA_PROP_LIST:
			self.AltNames, err = altNames(attr)
		case nlmsg.IFLA_STATS64:
			if b, e := attr.Bytes(); e != nil {
				err = e
			} else if s, e := nlmsg.ParseLinkStats64(b); e != nil {
				err = e
			} else {
				self.Stats = &s
			}
		}
		if err != nil {
			return self, errors.Wrapf(err, "link %d %s", m.Info.Index, nlmsg.RouteLinkPolicy.Name(attr.Field()))
		}
	}
	return self, nil
}

func linkKind(attr nlmsg.Attr) (string, error) {
	if info, err := attr.Nested(); err != nil {
		return "", err
	} else if kind, ok := info.Get(nlmsg.IFLA_INFO_KIND).(string); ok {
		return kind, nil
	}
	return "", nil
}

func altNames(attr nlmsg.Attr) ([]string, error) {
	props, err := attr.Nested()
	if err != nil {
		return nil, err
	}
	var ret []string
	for _, prop := range props {
		if prop.Field() != nlmsg.IFLA_ALT_IFNAME {
			continue
		}
		if name, err := prop.Str(); err != nil {
			return nil, err
		} else {
			ret = append(ret, name)
		}
	}
	return ret, nil
}

func (self Link) FlagNames() []string {
	return nlmsg.IffFlags.Names(self.Flags)
}

func (self Link) Up() bool {
	return self.Flags&nlmsg.IFF_UP != 0
}

// Message returns an RTM_NEWLINK request carrying the settable fields.
func (self Link) Message() *nlmsg.LinkMessage {
	m := nlmsg.NewNewLinkRequest()
	m.Info.Index = self.Index
	m.Info.Type = uint16(self.Type)
	m.Info.Flags = self.Flags
	if self.Name != "" {
		m.Attrs.Set(nlmsg.NewStringAttr(nlmsg.IFLA_IFNAME, self.Name))
	}
	if len(self.Address) > 0 {
		m.Attrs.Set(nlmsg.NewHwAddrAttr(nlmsg.IFLA_ADDRESS, self.Address.String()))
	}
	if self.MTU != 0 {
		m.Attrs.Set(nlmsg.NewU32Attr(nlmsg.IFLA_MTU, self.MTU))
	}
	if self.TxQLen != 0 {
		m.Attrs.Set(nlmsg.NewU32Attr(nlmsg.IFLA_TXQLEN, self.TxQLen))
	}
	if self.Alias != "" {
		m.Attrs.Set(nlmsg.NewStringAttr(nlmsg.IFLA_IFALIAS, self.Alias))
	}
	if self.Group != 0 {
		m.Attrs.Set(nlmsg.NewU32Attr(nlmsg.IFLA_GROUP, self.Group))
	}
	return m
}
