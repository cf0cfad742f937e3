package nlmsg

import (
	"github.com/josharian/native"
)

const (
	IFLA_UNSPEC = iota
	IFLA_ADDRESS
	IFLA_BROADCAST
	IFLA_IFNAME
	IFLA_MTU
	IFLA_LINK // used with 8021q, for example
	IFLA_QDISC
	IFLA_STATS
	IFLA_COST
	IFLA_PRIORITY
	IFLA_MASTER
	IFLA_WIRELESS
	IFLA_PROTINFO
	IFLA_TXQLEN
	IFLA_MAP
	IFLA_WEIGHT
	IFLA_OPERSTATE
	IFLA_LINKMODE
	IFLA_LINKINFO
	IFLA_NET_NS_PID
	IFLA_IFALIAS
	IFLA_NUM_VF
	IFLA_VFINFO_LIST
	IFLA_STATS64
	IFLA_VF_PORTS
	IFLA_PORT_SELF
	IFLA_AF_SPEC
	IFLA_GROUP
	IFLA_NET_NS_FD
	IFLA_EXT_MASK
	IFLA_PROMISCUITY
	IFLA_NUM_TX_QUEUES
	IFLA_NUM_RX_QUEUES
	IFLA_CARRIER
	IFLA_PHYS_PORT_ID
	IFLA_CARRIER_CHANGES
	IFLA_PHYS_SWITCH_ID
	IFLA_LINK_NETNSID
	IFLA_PHYS_PORT_NAME
	IFLA_PROTO_DOWN
	IFLA_GSO_MAX_SEGS
	IFLA_GSO_MAX_SIZE
	IFLA_PAD
	IFLA_XDP
	IFLA_EVENT
	IFLA_NEW_NETNSID
	IFLA_IF_NETNSID
	IFLA_CARRIER_UP_COUNT
	IFLA_CARRIER_DOWN_COUNT
	IFLA_NEW_IFINDEX
	IFLA_MIN_MTU
	IFLA_MAX_MTU
	IFLA_PROP_LIST
	IFLA_ALT_IFNAME
	IFLA_PERM_ADDRESS
	IFLA_PROTO_DOWN_REASON
)

var IFLA_itoa = map[uint16]string{
	IFLA_UNSPEC:             "unspec",
	IFLA_ADDRESS:            "address",
	IFLA_BROADCAST:          "broadcast",
	IFLA_IFNAME:             "ifname",
	IFLA_MTU:                "mtu",
	IFLA_LINK:               "link",
	IFLA_QDISC:              "qdisc",
	IFLA_STATS:              "stats",
	IFLA_COST:               "cost",
	IFLA_PRIORITY:           "priority",
	IFLA_MASTER:             "master",
	IFLA_WIRELESS:           "wireless",
	IFLA_PROTINFO:           "protinfo",
	IFLA_TXQLEN:             "txqlen",
	IFLA_MAP:                "map",
	IFLA_WEIGHT:             "weight",
	IFLA_OPERSTATE:          "operstate",
	IFLA_LINKMODE:           "linkmode",
	IFLA_LINKINFO:           "linkinfo",
	IFLA_NET_NS_PID:         "net_ns_pid",
	IFLA_IFALIAS:            "ifalias",
	IFLA_NUM_VF:             "num_vf",
	IFLA_VFINFO_LIST:        "vfinfo_list",
	IFLA_STATS64:            "stats64",
	IFLA_VF_PORTS:           "vf_ports",
	IFLA_PORT_SELF:          "port_self",
	IFLA_AF_SPEC:            "af_spec",
	IFLA_GROUP:              "group",
	IFLA_NET_NS_FD:          "net_ns_fd",
	IFLA_EXT_MASK:           "ext_mask",
	IFLA_PROMISCUITY:        "promiscuity",
	IFLA_NUM_TX_QUEUES:      "num_tx_queues",
	IFLA_NUM_RX_QUEUES:      "num_rx_queues",
	IFLA_CARRIER:            "carrier",
	IFLA_PHYS_PORT_ID:       "phys_port_id",
	IFLA_CARRIER_CHANGES:    "carrier_changes",
	IFLA_PHYS_SWITCH_ID:     "phys_switch_id",
	IFLA_LINK_NETNSID:       "link_netnsid",
	IFLA_PHYS_PORT_NAME:     "phys_port_name",
	IFLA_PROTO_DOWN:         "proto_down",
	IFLA_GSO_MAX_SEGS:       "gso_max_segs",
	IFLA_GSO_MAX_SIZE:       "gso_max_size",
	IFLA_PAD:                "pad",
	IFLA_XDP:                "xdp",
	IFLA_EVENT:              "event",
	IFLA_NEW_NETNSID:        "new_netnsid",
	IFLA_IF_NETNSID:         "if_netnsid",
	IFLA_CARRIER_UP_COUNT:   "carrier_up_count",
	IFLA_CARRIER_DOWN_COUNT: "carrier_down_count",
	IFLA_NEW_IFINDEX:        "new_ifindex",
	IFLA_MIN_MTU:            "min_mtu",
	IFLA_MAX_MTU:            "max_mtu",
	IFLA_PROP_LIST:          "prop_list",
	IFLA_ALT_IFNAME:         "alt_ifname",
	IFLA_PERM_ADDRESS:       "perm_address",
	IFLA_PROTO_DOWN_REASON:  "proto_down_reason",
}

const (
	IFLA_INFO_UNSPEC = iota
	IFLA_INFO_KIND
	IFLA_INFO_DATA
	IFLA_INFO_XSTATS
	IFLA_INFO_SLAVE_KIND
	IFLA_INFO_SLAVE_DATA
)

// RtnlLinkStats64 is the leading part of the IFLA_STATS64 payload.
type RtnlLinkStats64 struct {
	RxPackets  uint64
	TxPackets  uint64
	RxBytes    uint64
	TxBytes    uint64
	RxErrors   uint64
	TxErrors   uint64
	RxDropped  uint64
	TxDropped  uint64
	Multicast  uint64
	Collisions uint64
	// detailed rx_errors
	RxLengthErrors uint64
	RxOverErrors   uint64
	RxCrcErrors    uint64
	RxFrameErrors  uint64
	RxFifoErrors   uint64
	RxMissedErrors uint64
	// detailed tx_errors
	TxAbortedErrors   uint64
	TxCarrierErrors   uint64
	TxFifoErrors      uint64
	TxHeartbeatErrors uint64
	TxWindowErrors    uint64
	// cslip etc.
	RxCompressed uint64
	TxCompressed uint64
}

const SizeofRtnlLinkStats64 = 23 * 8

// ParseLinkStats64 decodes an IFLA_STATS64 value. Counters added by newer
// kernels after TxCompressed are ignored.
func ParseLinkStats64(b []byte) (RtnlLinkStats64, error) {
	var s RtnlLinkStats64
	if len(b) < SizeofRtnlLinkStats64 {
		return s, decodeError("rtnl_link_stats64", 0, NLE_MSG_TOOSHORT)
	}
	for i, p := range []*uint64{
		&s.RxPackets, &s.TxPackets, &s.RxBytes, &s.TxBytes,
		&s.RxErrors, &s.TxErrors, &s.RxDropped, &s.TxDropped,
		&s.Multicast, &s.Collisions,
		&s.RxLengthErrors, &s.RxOverErrors, &s.RxCrcErrors,
		&s.RxFrameErrors, &s.RxFifoErrors, &s.RxMissedErrors,
		&s.TxAbortedErrors, &s.TxCarrierErrors, &s.TxFifoErrors,
		&s.TxHeartbeatErrors, &s.TxWindowErrors,
		&s.RxCompressed, &s.TxCompressed,
	} {
		*p = native.Endian.Uint64(b[i*8:])
	}
	return s, nil
}

var LinkInfoPolicy = MapPolicy{
	Prefix: "IFLA_INFO",
	Names: map[uint16]string{
		IFLA_INFO_KIND:       "kind",
		IFLA_INFO_DATA:       "data",
		IFLA_INFO_XSTATS:     "xstats",
		IFLA_INFO_SLAVE_KIND: "slave_kind",
		IFLA_INFO_SLAVE_DATA: "slave_data",
	},
	Rule: map[uint16]AttrKind{
		IFLA_INFO_KIND:       NLA_NUL_STRING,
		IFLA_INFO_SLAVE_KIND: NLA_NUL_STRING,
	},
}

// LinkPropPolicy is the content of IFLA_PROP_LIST.
var LinkPropPolicy = MapPolicy{
	Prefix: "IFLA",
	Names: map[uint16]string{
		IFLA_ALT_IFNAME: "alt_ifname",
	},
	Rule: map[uint16]AttrKind{
		IFLA_ALT_IFNAME: NLA_NUL_STRING,
	},
}

var RouteLinkPolicy = MapPolicy{
	Prefix: "IFLA",
	Names:  IFLA_itoa,
	Rule: map[uint16]AttrKind{
		IFLA_ADDRESS:      NLA_HWADDR,
		IFLA_BROADCAST:    NLA_HWADDR,
		IFLA_PERM_ADDRESS: NLA_HWADDR,

		IFLA_IFNAME:         NLA_NUL_STRING,
		IFLA_QDISC:          NLA_NUL_STRING,
		IFLA_IFALIAS:        NLA_NUL_STRING,
		IFLA_PHYS_PORT_NAME: NLA_NUL_STRING,
		IFLA_ALT_IFNAME:     NLA_NUL_STRING,

		IFLA_MTU:                NLA_U32,
		IFLA_LINK:               NLA_U32,
		IFLA_MASTER:             NLA_U32,
		IFLA_TXQLEN:             NLA_U32,
		IFLA_WEIGHT:             NLA_U32,
		IFLA_NET_NS_PID:         NLA_U32,
		IFLA_NET_NS_FD:          NLA_U32,
		IFLA_NUM_VF:             NLA_U32,
		IFLA_GROUP:              NLA_U32,
		IFLA_EXT_MASK:           NLA_U32,
		IFLA_PROMISCUITY:        NLA_U32,
		IFLA_NUM_TX_QUEUES:      NLA_U32,
		IFLA_NUM_RX_QUEUES:      NLA_U32,
		IFLA_CARRIER_CHANGES:    NLA_U32,
		IFLA_GSO_MAX_SEGS:       NLA_U32,
		IFLA_GSO_MAX_SIZE:       NLA_U32,
		IFLA_EVENT:              NLA_U32,
		IFLA_CARRIER_UP_COUNT:   NLA_U32,
		IFLA_CARRIER_DOWN_COUNT: NLA_U32,
		IFLA_NEW_IFINDEX:        NLA_U32,
		IFLA_MIN_MTU:            NLA_U32,
		IFLA_MAX_MTU:            NLA_U32,

		IFLA_OPERSTATE:  NLA_U8,
		IFLA_LINKMODE:   NLA_U8,
		IFLA_CARRIER:    NLA_U8,
		IFLA_PROTO_DOWN: NLA_U8,

		IFLA_LINKINFO:          NLA_NESTED,
		IFLA_VFINFO_LIST:       NLA_NESTED,
		IFLA_VF_PORTS:          NLA_NESTED,
		IFLA_PORT_SELF:         NLA_NESTED,
		IFLA_AF_SPEC:           NLA_NESTED,
		IFLA_XDP:               NLA_NESTED,
		IFLA_PROP_LIST:         NLA_NESTED,
		IFLA_PROTO_DOWN_REASON: NLA_NESTED,
	},
	Nested: map[uint16]MapPolicy{
		IFLA_LINKINFO:  LinkInfoPolicy,
		IFLA_PROP_LIST: LinkPropPolicy,
	},
}
