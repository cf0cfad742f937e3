package rtlink

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hkwi/nlmsg"
	"github.com/hkwi/nlmsg/nltest"
	"github.com/josharian/native"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func marshal(t *testing.T, msgs ...nlmsg.Message) []byte {
	var b []byte
	for _, m := range msgs {
		mb, err := m.MarshalBinary()
		require.NoError(t, err)
		b = append(b, mb...)
	}
	return b
}

func vethMessage(t *testing.T, hdr nlmsg.Header) *nlmsg.LinkMessage {
	m := nlmsg.NewLinkMessage()
	m.Header = hdr
	m.Info.Index = 7
	m.Info.Type = 1
	m.Info.Flags = nlmsg.IFF_UP | nlmsg.IFF_BROADCAST | nlmsg.IFF_RUNNING

	stats := make([]byte, nlmsg.SizeofRtnlLinkStats64)
	native.Endian.PutUint64(stats[0:], 3)
	native.Endian.PutUint64(stats[8:], 4)

	m.Attrs = nlmsg.AttrList{
		nlmsg.NewStringAttr(nlmsg.IFLA_IFNAME, "veth0"),
		nlmsg.NewHwAddrAttr(nlmsg.IFLA_ADDRESS, "02:42:ac:11:00:02"),
		nlmsg.NewHwAddrAttr(nlmsg.IFLA_BROADCAST, "ff:ff:ff:ff:ff:ff"),
		nlmsg.NewU32Attr(nlmsg.IFLA_MTU, 1500),
		nlmsg.NewU32Attr(nlmsg.IFLA_TXQLEN, 1000),
		nlmsg.NewU32Attr(nlmsg.IFLA_MASTER, 3),
		nlmsg.NewU8Attr(nlmsg.IFLA_OPERSTATE, uint8(IF_OPER_UP)),
		nlmsg.NewU8Attr(nlmsg.IFLA_LINKMODE, uint8(IF_LINK_MODE_DORMANT)),
		nlmsg.NewU8Attr(nlmsg.IFLA_CARRIER, 1),
		nlmsg.NewStringAttr(nlmsg.IFLA_QDISC, "noqueue"),
		nlmsg.NewStringAttr(nlmsg.IFLA_IFALIAS, "uplink"),
		nlmsg.NewNestedAttr(nlmsg.IFLA_LINKINFO, nlmsg.AttrList{
			nlmsg.NewStringAttr(nlmsg.IFLA_INFO_KIND, "veth"),
		}),
		nlmsg.NewNestedAttr(nlmsg.IFLA_PROP_LIST, nlmsg.AttrList{
			nlmsg.NewStringAttr(nlmsg.IFLA_ALT_IFNAME, "veth-uplink"),
			nlmsg.NewStringAttr(nlmsg.IFLA_ALT_IFNAME, "enp0s1"),
		}),
		nlmsg.NewUnspecAttr(nlmsg.IFLA_STATS64, stats),
	}
	return m
}

func TestFromMessage(t *testing.T) {
	b := marshal(t, vethMessage(t, nlmsg.Header{Type: unix.RTM_NEWLINK}))
	msg, _, err := nlmsg.Decode(b)
	require.NoError(t, err)

	link, err := FromMessage(msg.(*nlmsg.LinkMessage))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), link.Index)
	assert.Equal(t, "veth0", link.Name)
	assert.Equal(t, "ETHER", link.Type.String())
	assert.Equal(t, net.HardwareAddr{0x02, 0x42, 0xac, 0x11, 0x00, 0x02}, link.Address)
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", link.Broadcast.String())
	assert.Equal(t, uint32(1500), link.MTU)
	assert.Equal(t, uint32(1000), link.TxQLen)
	assert.Equal(t, uint32(3), link.Master)
	assert.Equal(t, IF_OPER_UP, link.OperState)
	assert.Equal(t, "up", link.OperState.String())
	assert.Equal(t, "dormant", link.LinkMode.String())
	assert.True(t, link.Carrier)
	assert.Equal(t, "noqueue", link.Qdisc)
	assert.Equal(t, "uplink", link.Alias)
	assert.Equal(t, "veth", link.Kind)
	assert.Equal(t, []string{"veth-uplink", "enp0s1"}, link.AltNames)
	require.NotNil(t, link.Stats)
	assert.Equal(t, uint64(3), link.Stats.RxPackets)
	assert.Equal(t, uint64(4), link.Stats.TxPackets)
	assert.True(t, link.Up())
	assert.Equal(t, []string{"up", "broadcast", "running"}, link.FlagNames())
}

func TestFromMessageTunnelAddress(t *testing.T) {
	m := nlmsg.NewLinkMessage()
	m.Header.Type = unix.RTM_NEWLINK
	m.Info.Index = 9
	m.Attrs.Set(nlmsg.NewUnspecAttr(nlmsg.IFLA_ADDRESS, []byte{10, 0, 0, 1}))
	msg, _, err := nlmsg.Decode(marshal(t, m))
	require.NoError(t, err)

	link, err := FromMessage(msg.(*nlmsg.LinkMessage))
	require.NoError(t, err)
	assert.Equal(t, net.HardwareAddr{10, 0, 0, 1}, link.Address)
}

func TestFromMessageBadStats(t *testing.T) {
	m := nlmsg.NewLinkMessage()
	m.Info.Index = 2
	m.Attrs.Set(nlmsg.NewUnspecAttr(nlmsg.IFLA_STATS64, make([]byte, 8)))
	_, err := FromMessage(m)
	assert.Equal(t, nlmsg.NLE_MSG_TOOSHORT, errors.Cause(err))
	assert.Contains(t, err.Error(), "stats64")
}

func TestLinkMessage(t *testing.T) {
	link := Link{
		Index:   4,
		Name:    "br0",
		Address: net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		MTU:     9000,
		Alias:   "bridge",
	}
	m := link.Message()
	assert.Equal(t, uint16(unix.RTM_NEWLINK), m.Header.Type)
	assert.Equal(t, uint32(4), m.Info.Index)
	assert.Equal(t, "br0", m.Attrs.Get(nlmsg.IFLA_IFNAME))
	assert.Equal(t, "02:00:00:00:00:01", m.Attrs.Get(nlmsg.IFLA_ADDRESS))
	assert.Equal(t, uint32(9000), m.Attrs.Get(nlmsg.IFLA_MTU))
	assert.Equal(t, "bridge", m.Attrs.Get(nlmsg.IFLA_IFALIAS))
	assert.Nil(t, m.Attrs.Get(nlmsg.IFLA_TXQLEN))

	b, err := m.MarshalBinary()
	require.NoError(t, err)
	msg, _, err := nlmsg.Decode(b)
	require.NoError(t, err)
	back, err := FromMessage(msg.(*nlmsg.LinkMessage))
	require.NoError(t, err)
	assert.Equal(t, link.Name, back.Name)
	assert.Equal(t, link.Address, back.Address)
	assert.Equal(t, link.MTU, back.MTU)
}

func TestOperState(t *testing.T) {
	s, err := ParseOperState("IF_OPER_DORMANT")
	require.NoError(t, err)
	assert.Equal(t, IF_OPER_DORMANT, s)
	s, err = ParseOperState("lowerlayerdown")
	require.NoError(t, err)
	assert.Equal(t, IF_OPER_LOWERLAYERDOWN, s)
	assert.Equal(t, "operstate(9)", OperState(9).String())

	_, err = ParseOperState("sleepy")
	var une *nlmsg.UnknownNameError
	assert.True(t, errors.As(err, &une))
}

// rtnetlink answers link requests from a fixed table of links.
func rtnetlink(t *testing.T, names ...string) nltest.Func {
	return func(b []byte) ([][]byte, error) {
		msg, _, err := nlmsg.Decode(b)
		require.NoError(t, err)
		req := msg.(*nlmsg.LinkMessage)
		hdr := req.Header

		reply := func(index int, flags uint16) *nlmsg.LinkMessage {
			m := nlmsg.NewLinkMessage()
			m.Header = nlmsg.Header{Type: unix.RTM_NEWLINK, Flags: flags, Seq: hdr.Seq, Pid: hdr.Pid}
			m.Info.Index = uint32(index + 1)
			m.Attrs.Set(nlmsg.NewStringAttr(nlmsg.IFLA_IFNAME, names[index]))
			return m
		}
		ack := func(code int32) []byte {
			return marshal(t, &nlmsg.ErrorMessage{
				Header:     nlmsg.Header{Type: unix.NLMSG_ERROR, Seq: hdr.Seq, Pid: hdr.Pid},
				Error:      code,
				OrigHeader: hdr,
			})
		}

		switch {
		case hdr.Type == unix.RTM_NEWLINK:
			return [][]byte{ack(0)}, nil
		case hdr.Flags&unix.NLM_F_DUMP == unix.NLM_F_DUMP:
			var msgs []nlmsg.Message
			for i := range names {
				msgs = append(msgs, reply(i, unix.NLM_F_MULTI))
			}
			msgs = append(msgs, &nlmsg.DoneMessage{Header: nlmsg.Header{Type: unix.NLMSG_DONE, Flags: unix.NLM_F_MULTI, Seq: hdr.Seq}})
			return [][]byte{marshal(t, msgs...)}, nil
		}
		for i, name := range names {
			if name == req.Attrs.Get(nlmsg.IFLA_IFNAME) || uint32(i+1) == req.Info.Index {
				return [][]byte{marshal(t, reply(i, 0)), ack(0)}, nil
			}
		}
		return [][]byte{ack(-int32(unix.ENODEV))}, nil
	}
}

func TestList(t *testing.T) {
	s := nlmsg.NewSession(nltest.New(10, rtnetlink(t, "lo", "eth0", "eth1")), nil)
	links, err := List(testContext(t), s)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "eth1", links[2].Name)
	assert.Equal(t, uint32(3), links[2].Index)
}

func TestGet(t *testing.T) {
	s := nlmsg.NewSession(nltest.New(10, rtnetlink(t, "lo", "eth0")), nil)
	ctx := testContext(t)

	link, err := GetByName(ctx, s, "eth0")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), link.Index)

	link, err = GetByIndex(ctx, s, 1)
	require.NoError(t, err)
	assert.Equal(t, "lo", link.Name)

	name, err := GetNameByIndex(ctx, s, 2)
	require.NoError(t, err)
	assert.Equal(t, "eth0", name)

	_, err = GetByName(ctx, s, "wlan0")
	assert.True(t, errors.Is(err, unix.ENODEV))
	assert.Contains(t, err.Error(), `"wlan0"`)
}

func TestGetEmpty(t *testing.T) {
	tr := nltest.New(10, func(b []byte) ([][]byte, error) {
		hdr, err := nlmsg.DecodeHeader(b)
		require.NoError(t, err)
		return [][]byte{marshal(t, &nlmsg.ErrorMessage{
			Header:     nlmsg.Header{Type: unix.NLMSG_ERROR, Seq: hdr.Seq},
			OrigHeader: hdr,
		})}, nil
	})
	_, err := GetByIndex(testContext(t), nlmsg.NewSession(tr, nil), 5)
	assert.Equal(t, nlmsg.NLE_OBJ_NOTFOUND, errors.Cause(err))
}

func TestSet(t *testing.T) {
	tr := nltest.New(10, rtnetlink(t, "lo"))
	s := nlmsg.NewSession(tr, nil)
	require.NoError(t, Set(testContext(t), s, Link{Index: 1, MTU: 1280}))

	sent := tr.Sent()
	require.Len(t, sent, 1)
	msg, _, err := nlmsg.Decode(sent[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(1280), msg.Attributes().Get(nlmsg.IFLA_MTU))
}
