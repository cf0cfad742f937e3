package nlmsg

import (
	"golang.org/x/sys/unix"
)

// Registry selects the message kind used to decode each message type.
// It has no mutators, so a built Registry may be shared freely.
type Registry struct {
	types map[uint16]func() Message
}

func NewRegistry(types map[uint16]func() Message) *Registry {
	self := &Registry{types: make(map[uint16]func() Message, len(types))}
	for t, f := range types {
		self.types[t] = f
	}
	return self
}

// Registered reports whether t has a specialized decoder.
func (self *Registry) Registered(t uint16) bool {
	_, ok := self.types[t]
	return ok
}

// Decode decodes the message at the start of b. Unregistered types come
// back as *GenericMessage. The returned count includes the alignment
// padding that separates messages in a receive buffer.
func (self *Registry) Decode(b []byte) (Message, int, error) {
	generic := &GenericMessage{}
	if err := generic.UnmarshalBinary(b); err != nil {
		return nil, 0, err
	}
	n := NLMSG_ALIGN(int(generic.Len))
	if n > len(b) {
		n = len(b)
	}
	if f, ok := self.types[generic.Type]; ok {
		msg := f()
		if err := msg.UnmarshalBinary(b[:generic.Len]); err != nil {
			return nil, 0, err
		}
		return msg, n, nil
	}
	return generic, n, nil
}

// DecodeAll decodes every message in b. Any failure fails the whole buffer.
func (self *Registry) DecodeAll(b []byte) ([]Message, error) {
	var ret []Message
	for off := 0; off < len(b); {
		if msg, n, err := self.Decode(b[off:]); err != nil {
			if e, ok := err.(*DecodeError); ok {
				e.Offset += off
			}
			return nil, err
		} else {
			ret = append(ret, msg)
			off += n
		}
	}
	return ret, nil
}

// DefaultRegistry knows the control messages and the link messages. It is
// complete once package initialization has finished.
var DefaultRegistry = NewRegistry(map[uint16]func() Message{
	unix.NLMSG_ERROR: func() Message { return &ErrorMessage{} },
	unix.NLMSG_DONE:  func() Message { return &DoneMessage{} },
	unix.RTM_NEWLINK: func() Message { return &LinkMessage{} },
	unix.RTM_DELLINK: func() Message { return &LinkMessage{} },
	unix.RTM_GETLINK: func() Message { return &LinkMessage{} },
	unix.RTM_SETLINK: func() Message { return &LinkMessage{} },
})

func Decode(b []byte) (Message, int, error) {
	return DefaultRegistry.Decode(b)
}

func DecodeAll(b []byte) ([]Message, error) {
	return DefaultRegistry.DecodeAll(b)
}
