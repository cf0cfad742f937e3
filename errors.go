package nlmsg

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// error.h

type NlError int

const (
	NLE_SUCCESS NlError = iota
	NLE_FAILURE
	NLE_INTR
	NLE_BAD_SOCK
	NLE_AGAIN
	NLE_NOMEM
	NLE_EXIST
	NLE_INVAL
	NLE_RANGE
	NLE_MSGSIZE
	NLE_OPNOTSUPP
	NLE_AF_NOSUPPORT
	NLE_OBJ_NOTFOUND
	NLE_NOATTR
	NLE_MISSING_ATTR
	NLE_AF_MISMATCH
	NLE_SEQ_MISMATCH
	NLE_MSG_OVERFLOW
	NLE_MSG_TRUNC
	NLE_NOADDR
	NLE_SRCRT_NOSUPPORT
	NLE_MSG_TOOSHORT
	NLE_MSGTYPE_NOSUPPORT
	NLE_OBJ_MISMATCH
	NLE_NOCACHE
	NLE_BUSY
	NLE_PROTO_MISMATCH
	NLE_NOACCESS
	NLE_PERM
	NLE_PKTLOC_FILE
	NLE_PARSE_ERR
	NLE_NODEV
	NLE_IMMUTABLE
	NLE_DUMP_INTR
)

var nlErrorText = [...]string{
	NLE_SUCCESS:           "Success",
	NLE_FAILURE:           "Unspecific failure",
	NLE_INTR:              "Interrupted system call",
	NLE_BAD_SOCK:          "Bad socket",
	NLE_AGAIN:             "Try again",
	NLE_NOMEM:             "Out of memory",
	NLE_EXIST:             "Object exists",
	NLE_INVAL:             "Invalid input data or parameter",
	NLE_RANGE:             "Input data out of range",
	NLE_MSGSIZE:           "Message size not sufficient",
	NLE_OPNOTSUPP:         "Operation not supported",
	NLE_AF_NOSUPPORT:      "Address family not supported",
	NLE_OBJ_NOTFOUND:      "Object not found",
	NLE_NOATTR:            "Attribute not available",
	NLE_MISSING_ATTR:      "Missing attribute",
	NLE_AF_MISMATCH:       "Address family mismatch",
	NLE_SEQ_MISMATCH:      "Message sequence number mismatch",
	NLE_MSG_OVERFLOW:      "Kernel reported message overflow",
	NLE_MSG_TRUNC:         "Kernel reported truncated message",
	NLE_NOADDR:            "Invalid address for specified address family",
	NLE_SRCRT_NOSUPPORT:   "Source based routing not supported",
	NLE_MSG_TOOSHORT:      "Netlink message is too short",
	NLE_MSGTYPE_NOSUPPORT: "Netlink message type is not supported",
	NLE_OBJ_MISMATCH:      "Object type does not match cache",
	NLE_NOCACHE:           "Unknown or invalid cache type",
	NLE_BUSY:              "Object busy",
	NLE_PROTO_MISMATCH:    "Protocol mismatch",
	NLE_NOACCESS:          "No Access",
	NLE_PERM:              "Operation not permitted",
	NLE_PKTLOC_FILE:       "Unable to open packet location file",
	NLE_PARSE_ERR:         "Unable to parse object",
	NLE_NODEV:             "No such device",
	NLE_IMMUTABLE:         "Immutable attribute",
	NLE_DUMP_INTR:         "Dump inconsistency detected, interrupted",
}

func (self NlError) Error() string {
	if self < 0 || int(self) >= len(nlErrorText) {
		return nlErrorText[NLE_FAILURE]
	}
	return nlErrorText[self]
}

// DecodeError reports malformed input. Err is one of the NlError codes.
type DecodeError struct {
	Op     string
	Offset int
	Err    error
}

func (self *DecodeError) Error() string {
	return fmt.Sprintf("nlmsg: decode %s at offset %d: %v", self.Op, self.Offset, self.Err)
}

func (self *DecodeError) Unwrap() error { return self.Err }

func (self *DecodeError) Cause() error { return self.Err }

func decodeError(op string, offset int, err error) error {
	return &DecodeError{Op: op, Offset: offset, Err: err}
}

// UnknownNameError is returned when a symbolic name is not in its table.
type UnknownNameError struct {
	Table string
	Name  string
}

func (self *UnknownNameError) Error() string {
	return fmt.Sprintf("nlmsg: unknown %s name %q", self.Table, self.Name)
}

// ValueTypeError is returned when an attribute value is read or written as
// the wrong kind.
type ValueTypeError struct {
	Type uint16
	Want AttrKind
	Got  interface{}
}

func (self *ValueTypeError) Error() string {
	return fmt.Sprintf("nlmsg: attribute %d is %v, not %T", self.Type, self.Want, self.Got)
}

// KernelError is a non-zero NLMSG_ERROR answer to a request.
type KernelError struct {
	Errno   int32
	Header  Header // the request header echoed by the kernel
	Message string // extended ack message, if any
}

func (self *KernelError) errno() syscall.Errno {
	if self.Errno < 0 {
		return syscall.Errno(-self.Errno)
	}
	return syscall.Errno(self.Errno)
}

// Name returns the symbolic errno name, such as ENOENT.
func (self *KernelError) Name() string {
	if name := unix.ErrnoName(self.errno()); name != "" {
		return name
	}
	return fmt.Sprintf("errno %d", self.errno())
}

func (self *KernelError) Error() string {
	msg := fmt.Sprintf("netlink error %s: %v (seq %d)", self.Name(), self.errno(), self.Header.Seq)
	if self.Message != "" {
		msg += ": " + self.Message
	}
	return msg
}

func (self *KernelError) Unwrap() error { return self.errno() }
