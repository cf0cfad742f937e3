package nlmsg

import (
	"fmt"
	"strings"
)

// LinkType is the ARPHRD hardware type of an interface.
type LinkType uint16

var linkTypeNames = map[LinkType]string{
	0:   "NETROM",
	1:   "ETHER",
	2:   "EETHER",
	3:   "AX25",
	4:   "PRONET",
	5:   "CHAOS",
	6:   "IEEE802",
	7:   "ARCNET",
	8:   "APPLETALK",
	15:  "DLCI",
	19:  "ATM",
	23:  "METRICOM",
	24:  "IEEE1394",
	27:  "EUI64",
	32:  "INFINIBAND",
	256: "SLIP",
	257: "CSLIP",
	258: "SLIP6",
	259: "CSLIP6",
	280: "CAN",
	512: "PPP",
	519: "RAWIP",
	768: "TUNNEL",
	769: "TUNNEL6",
	772: "LOOPBACK",
	774: "FDDI",
	776: "SIT",
	778: "IPGRE",
	783: "IRDA",
	801: "IEEE80211",
	802: "IEEE80211_PRISM",
	803: "IEEE80211_RADIOTAP",
	823: "IP6GRE",
	824: "NETLINK",
	825: "6LOWPAN",
}

var linkTypeValues = func() map[string]LinkType {
	ret := make(map[string]LinkType, len(linkTypeNames))
	for v, n := range linkTypeNames {
		ret[n] = v
	}
	return ret
}()

func (self LinkType) String() string {
	if n, ok := linkTypeNames[self]; ok {
		return n
	}
	return fmt.Sprintf("%d", uint16(self))
}

// ParseLinkType accepts names such as "ETHER", "ether" or "ARPHRD_ETHER".
func ParseLinkType(name string) (LinkType, error) {
	key := strings.TrimPrefix(strings.ToUpper(name), "ARPHRD_")
	if v, ok := linkTypeValues[key]; ok {
		return v, nil
	}
	return 0, &UnknownNameError{Table: "ARPHRD", Name: name}
}
