package rtlink

import (
	"fmt"
	"strings"

	"github.com/hkwi/nlmsg"
)

// OperState is the RFC 2863 operational state in IFLA_OPERSTATE.
type OperState uint8

const (
	IF_OPER_UNKNOWN OperState = iota
	IF_OPER_NOTPRESENT
	IF_OPER_DOWN
	IF_OPER_LOWERLAYERDOWN
	IF_OPER_TESTING
	IF_OPER_DORMANT
	IF_OPER_UP
)

var operStateNames = []string{
	"unknown",
	"notpresent",
	"down",
	"lowerlayerdown",
	"testing",
	"dormant",
	"up",
}

func (self OperState) String() string {
	if int(self) < len(operStateNames) {
		return operStateNames[self]
	}
	return fmt.Sprintf("operstate(%d)", uint8(self))
}

func ParseOperState(name string) (OperState, error) {
	key := strings.TrimPrefix(strings.ToLower(name), "if_oper_")
	for i, n := range operStateNames {
		if n == key {
			return OperState(i), nil
		}
	}
	return 0, &nlmsg.UnknownNameError{Table: "IF_OPER", Name: name}
}

// LinkMode is IFLA_LINKMODE.
type LinkMode uint8

const (
	IF_LINK_MODE_DEFAULT LinkMode = iota
	IF_LINK_MODE_DORMANT
	IF_LINK_MODE_TESTING
)

func (self LinkMode) String() string {
	switch self {
	case IF_LINK_MODE_DEFAULT:
		return "default"
	case IF_LINK_MODE_DORMANT:
		return "dormant"
	case IF_LINK_MODE_TESTING:
		return "testing"
	}
	return fmt.Sprintf("linkmode(%d)", uint8(self))
}
