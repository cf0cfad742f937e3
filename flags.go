package nlmsg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Flag struct {
	Name  string
	Value uint32
}

// FlagTable maps bitmask values to names. When several names share a bit,
// the first one listed is used for decoding.
type FlagTable struct {
	Prefix string
	Flags  []Flag
}

// Value resolves a flag name, with or without the table prefix.
func (self FlagTable) Value(name string) (uint32, error) {
	key := strings.ToLower(name)
	key = strings.TrimPrefix(key, strings.ToLower(self.Prefix))
	for _, f := range self.Flags {
		if f.Name == key {
			return f.Value, nil
		}
	}
	return 0, &UnknownNameError{Table: self.Prefix, Name: name}
}

// Encode normalizes a flag specification to an integer. v may be an
// integer, a name, or a slice of either.
func (self FlagTable) Encode(v interface{}) (uint32, error) {
	switch f := v.(type) {
	case int:
		return uint32(f), nil
	case uint:
		return uint32(f), nil
	case int32:
		return uint32(f), nil
	case uint16:
		return uint32(f), nil
	case uint32:
		return f, nil
	case uint64:
		return uint32(f), nil
	case string:
		return self.Value(f)
	case []int:
		var ret uint32
		for _, x := range f {
			ret |= uint32(x)
		}
		return ret, nil
	case []uint16:
		var ret uint32
		for _, x := range f {
			ret |= uint32(x)
		}
		return ret, nil
	case []uint32:
		var ret uint32
		for _, x := range f {
			ret |= x
		}
		return ret, nil
	case []string:
		var ret uint32
		for _, name := range f {
			if x, err := self.Value(name); err != nil {
				return 0, err
			} else {
				ret |= x
			}
		}
		return ret, nil
	case []interface{}:
		var ret uint32
		for _, item := range f {
			if x, err := self.Encode(item); err != nil {
				return 0, err
			} else {
				ret |= x
			}
		}
		return ret, nil
	}
	return 0, errors.Wrapf(NLE_INVAL, "%s flags of type %T", self.Prefix, v)
}

// Names decodes v bit by bit. Bits without a name are kept as hex strings.
func (self FlagTable) Names(v uint32) []string {
	var ret []string
	for i := uint(0); i < 32; i++ {
		bit := uint32(1) << i
		if v&bit == 0 {
			continue
		}
		name := ""
		for _, f := range self.Flags {
			if f.Value == bit {
				name = f.Name
				break
			}
		}
		if name == "" {
			name = fmt.Sprintf("0x%x", bit)
		}
		ret = append(ret, name)
	}
	return ret
}

func (self FlagTable) String(v uint32) string {
	return strings.Join(self.Names(v), ",")
}

var NlmFlags = FlagTable{
	Prefix: "NLM_F_",
	Flags: []Flag{
		{"request", unix.NLM_F_REQUEST},
		{"multi", unix.NLM_F_MULTI},
		{"ack", unix.NLM_F_ACK},
		{"echo", unix.NLM_F_ECHO},
		{"dump_intr", unix.NLM_F_DUMP_INTR},
		{"dump_filtered", unix.NLM_F_DUMP_FILTERED},
		{"root", unix.NLM_F_ROOT},
		{"match", unix.NLM_F_MATCH},
		{"atomic", unix.NLM_F_ATOMIC},
		{"dump", unix.NLM_F_DUMP},
		{"replace", unix.NLM_F_REPLACE},
		{"excl", unix.NLM_F_EXCL},
		{"create", unix.NLM_F_CREATE},
		{"append", unix.NLM_F_APPEND},
		{"nonrec", unix.NLM_F_NONREC},
		{"capped", unix.NLM_F_CAPPED},
		{"ack_tlvs", unix.NLM_F_ACK_TLVS},
	},
}
