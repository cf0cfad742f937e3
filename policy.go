package nlmsg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MapPolicy describes the attributes of one attribute space. Names holds
// lowercase names without Prefix, and Rule the kind of each known type.
// Types missing from Rule decode as NLA_UNSPEC. NLA_NESTED attributes are
// parsed with their entry in Nested, or as a list of unspec attributes.
type MapPolicy struct {
	Prefix string
	Names  map[uint16]string
	Rule   map[uint16]AttrKind
	Nested map[uint16]MapPolicy
}

// Parse decodes a whole attribute sequence. The input must be consumed
// exactly; a trailing fragment is an error.
func (self MapPolicy) Parse(buf []byte) (AttrList, error) {
	var ret AttrList
	for off := 0; off < len(buf); {
		if attr, n, err := decodeAttr(buf[off:], self); err != nil {
			if e, ok := err.(*DecodeError); ok {
				e.Offset += off
			}
			return nil, err
		} else {
			ret = append(ret, attr)
			off += n
		}
	}
	return ret, nil
}

// Name returns the attribute name, or its decimal type when unknown.
func (self MapPolicy) Name(field uint16) string {
	if n, ok := self.Names[field&NLA_TYPE_MASK]; ok {
		return n
	}
	return strconv.Itoa(int(field & NLA_TYPE_MASK))
}

// Type resolves an attribute name. Both "ifname" and "IFLA_IFNAME" forms
// are accepted.
func (self MapPolicy) Type(name string) (uint16, error) {
	key := strings.ToLower(name)
	key = strings.TrimPrefix(key, strings.ToLower(self.Prefix)+"_")
	for t, n := range self.Names {
		if n == key {
			return t, nil
		}
	}
	if t, err := strconv.ParseUint(key, 10, 16); err == nil {
		return uint16(t), nil
	}
	return 0, &UnknownNameError{Table: self.Prefix, Name: name}
}

// NewAttr builds an attribute by name, checking the value against the
// kind of that attribute.
func (self MapPolicy) NewAttr(name string, value interface{}) (Attr, error) {
	if t, err := self.Type(name); err != nil {
		return Attr{}, err
	} else {
		attr := Attr{Type: t, Kind: self.Rule[t], Value: value}
		if _, err := attr.valueBytes(); err != nil {
			return Attr{}, err
		}
		return attr, nil
	}
}

// Lookup returns the attribute with the given name.
func (self MapPolicy) Lookup(attrs AttrList, name string) (Attr, error) {
	if t, err := self.Type(name); err != nil {
		return Attr{}, err
	} else if attr, ok := attrs.Find(t); !ok {
		return Attr{}, errors.Wrap(NLE_NOATTR, name)
	} else {
		return attr, nil
	}
}

// Map returns attribute values keyed by name.
func (self MapPolicy) Map(attrs AttrList) map[string]interface{} {
	ret := make(map[string]interface{}, len(attrs))
	for _, attr := range attrs {
		ret[self.Name(attr.Field())] = attr.Value
	}
	return ret
}

func (self MapPolicy) Dump(attrs AttrList) string {
	var comps []string
	for _, attr := range attrs {
		if sub, ok := self.Nested[attr.Field()]; ok {
			if list, err := attr.Nested(); err == nil {
				comps = append(comps, fmt.Sprintf("%s: %s", self.Name(attr.Field()), sub.Dump(list)))
				continue
			}
		}
		comps = append(comps, fmt.Sprintf("%s: %s", self.Name(attr.Field()), attr))
	}
	return fmt.Sprintf("%s(%s)", self.Prefix, strings.Join(comps, ", "))
}
