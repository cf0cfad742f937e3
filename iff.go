package nlmsg

// net/if.h

const (
	IFF_UP = 1 << iota
	IFF_BROADCAST
	IFF_DEBUG
	IFF_LOOPBACK
	IFF_POINTOPOINT
	IFF_NOTRAILERS
	IFF_RUNNING
	IFF_NOARP
	IFF_PROMISC
	IFF_ALLMULTI
	IFF_MASTER
	IFF_SLAVE
	IFF_MULTICAST
	IFF_PORTSEL
	IFF_AUTOMEDIA
	IFF_DYNAMIC
	IFF_LOWER_UP
	IFF_DORMANT
	IFF_ECHO
)

var IffFlags = FlagTable{
	Prefix: "IFF_",
	Flags: []Flag{
		{"up", IFF_UP},
		{"broadcast", IFF_BROADCAST},
		{"debug", IFF_DEBUG},
		{"loopback", IFF_LOOPBACK},
		{"pointopoint", IFF_POINTOPOINT},
		{"notrailers", IFF_NOTRAILERS},
		{"running", IFF_RUNNING},
		{"noarp", IFF_NOARP},
		{"promisc", IFF_PROMISC},
		{"allmulti", IFF_ALLMULTI},
		{"master", IFF_MASTER},
		{"slave", IFF_SLAVE},
		{"multicast", IFF_MULTICAST},
		{"portsel", IFF_PORTSEL},
		{"automedia", IFF_AUTOMEDIA},
		{"dynamic", IFF_DYNAMIC},
		{"lower_up", IFF_LOWER_UP},
		{"dormant", IFF_DORMANT},
		{"echo", IFF_ECHO},
	},
}
