package nlmsg

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// extended ack attributes

const (
	NLMSGERR_ATTR_UNUSED = iota
	NLMSGERR_ATTR_MSG
	NLMSGERR_ATTR_OFFS
)

var ExtAckPolicy = MapPolicy{
	Prefix: "NLMSGERR_ATTR",
	Names: map[uint16]string{
		NLMSGERR_ATTR_MSG:  "msg",
		NLMSGERR_ATTR_OFFS: "offs",
	},
	Rule: map[uint16]AttrKind{
		NLMSGERR_ATTR_MSG:  NLA_NUL_STRING,
		NLMSGERR_ATTR_OFFS: NLA_U32,
	},
}

// ErrorMessage is NLMSG_ERROR. A zero Error is an acknowledgement.
type ErrorMessage struct {
	Header
	Error      int32
	OrigHeader Header
	// OrigData is the body of the echoed request, when the kernel sent it.
	OrigData []byte
	ExtAck   AttrList
}

func (self *ErrorMessage) NlHeader() *Header { return &self.Header }

func (self *ErrorMessage) Attributes() AttrList { return self.ExtAck }

func (self *ErrorMessage) Ack() bool { return self.Error == 0 }

// Err returns nil for an acknowledgement and a *KernelError otherwise.
func (self *ErrorMessage) Err() error {
	if self.Ack() {
		return nil
	}
	return &KernelError{
		Errno:   self.Error,
		Header:  self.OrigHeader,
		Message: self.ExtAckMsg(),
	}
}

// ErrorString renders "ACK", or the errno name and description.
func (self *ErrorMessage) ErrorString() string {
	if self.Ack() {
		return "ACK"
	}
	e := Errno(self.Error)
	return fmt.Sprintf("%s,%v", unix.ErrnoName(e), e)
}

func (self *ErrorMessage) ExtAckMsg() string {
	if v, ok := self.ExtAck.Get(NLMSGERR_ATTR_MSG).(string); ok {
		return v
	}
	return ""
}

// ExtAckOffset returns the offset of the offending attribute in the
// request, when the kernel reported one.
func (self *ErrorMessage) ExtAckOffset() (uint32, bool) {
	v, ok := self.ExtAck.Get(NLMSGERR_ATTR_OFFS).(uint32)
	return v, ok
}

// MarshalBinary sets NLM_F_ACK_TLVS when ExtAck is present, and
// NLM_F_CAPPED when the echoed request body is absent.
func (self *ErrorMessage) MarshalBinary() ([]byte, error) {
	if len(self.ExtAck) > 0 {
		self.Header.Flags |= unix.NLM_F_ACK_TLVS
		if len(self.OrigData) == 0 && self.OrigHeader.Len > SizeofHeader {
			self.Header.Flags |= unix.NLM_F_CAPPED
		}
	}
	b := make([]byte, SizeofCInt+SizeofHeader)
	if err := PutInt(b, int64(self.Error), SizeofCInt); err != nil {
		return nil, err
	}
	self.OrigHeader.put(b[SizeofCInt:])
	b = append(b, Pad(append([]byte(nil), self.OrigData...))...)
	if len(self.ExtAck) > 0 {
		if ext, err := self.ExtAck.MarshalBinary(); err != nil {
			return nil, err
		} else {
			b = append(b, ext...)
		}
	}
	return marshalMessage(&self.Header, b), nil
}

func (self *ErrorMessage) UnmarshalBinary(b []byte) error {
	hdr, data, err := body(b)
	if err != nil {
		return err
	}
	if len(data) < SizeofCInt+SizeofHeader {
		return decodeError("error message", SizeofHeader, NLE_MSG_TOOSHORT)
	}
	code, err := Int(data, SizeofCInt)
	if err != nil {
		return decodeError("error code", SizeofHeader, err)
	}
	orig := parseHeader(data[SizeofCInt:])
	rest := data[SizeofCInt+SizeofHeader:]

	var origData []byte
	var ext AttrList
	if hdr.Flags&unix.NLM_F_ACK_TLVS != 0 {
		if hdr.Flags&unix.NLM_F_CAPPED == 0 && orig.Len > SizeofHeader {
			n := int(orig.Len) - SizeofHeader
			if n > len(rest) {
				return decodeError("echoed request", SizeofHeader+SizeofCInt+SizeofHeader, NLE_MSG_TRUNC)
			}
			origData = rest[:n]
			if n = NLMSG_ALIGN(n); n > len(rest) {
				n = len(rest)
			}
			rest = rest[n:]
		}
		if ext, err = ExtAckPolicy.Parse(rest); err != nil {
			if e, ok := err.(*DecodeError); ok {
				e.Offset += int(hdr.Len) - len(rest)
			}
			return err
		}
	} else if hdr.Flags&unix.NLM_F_CAPPED == 0 {
		origData = rest
	}

	self.Header = hdr
	self.Error = int32(code)
	self.OrigHeader = orig
	self.OrigData = append([]byte(nil), origData...)
	self.ExtAck = ext
	return nil
}

// DoneMessage is NLMSG_DONE. Dumps may carry an error code in the body.
type DoneMessage struct {
	Header
	Error  int32
	ExtAck AttrList
}

func (self *DoneMessage) NlHeader() *Header { return &self.Header }

func (self *DoneMessage) Attributes() AttrList { return self.ExtAck }

func (self *DoneMessage) Err() error {
	if self.Error == 0 {
		return nil
	}
	var msg string
	if v, ok := self.ExtAck.Get(NLMSGERR_ATTR_MSG).(string); ok {
		msg = v
	}
	return &KernelError{Errno: self.Error, Header: self.Header, Message: msg}
}

func (self *DoneMessage) MarshalBinary() ([]byte, error) {
	b := make([]byte, SizeofCInt)
	if err := PutInt(b, int64(self.Error), SizeofCInt); err != nil {
		return nil, err
	}
	if len(self.ExtAck) > 0 {
		self.Header.Flags |= unix.NLM_F_ACK_TLVS
		if ext, err := self.ExtAck.MarshalBinary(); err != nil {
			return nil, err
		} else {
			b = append(Pad(b), ext...)
		}
	}
	return marshalMessage(&self.Header, b), nil
}

func (self *DoneMessage) UnmarshalBinary(b []byte) error {
	hdr, data, err := body(b)
	if err != nil {
		return err
	}
	var code int64
	var ext AttrList
	if len(data) >= SizeofCInt {
		if code, err = Int(data, SizeofCInt); err != nil {
			return decodeError("done code", SizeofHeader, err)
		}
		if hdr.Flags&unix.NLM_F_ACK_TLVS != 0 {
			if ext, err = ExtAckPolicy.Parse(data[NLMSG_ALIGN(SizeofCInt):]); err != nil {
				return err
			}
		}
	}
	self.Header = hdr
	self.Error = int32(code)
	self.ExtAck = ext
	return nil
}

// Errno converts a kernel error code to a syscall.Errno.
func Errno(code int32) syscall.Errno {
	return (&KernelError{Errno: code}).errno()
}
