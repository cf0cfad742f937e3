// Package nlmsg implements the netlink wire protocol.
//
// Messages are decoded from and encoded to the kernel ABI byte layout:
// a 16 byte header, an optional fixed block, then a sequence of padded
// TLV attributes. All integers are in host byte order.
package nlmsg

import (
	"github.com/josharian/native"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func align(size, tick int) int {
	return (size + tick - 1) &^ (tick - 1)
}

func NLMSG_ALIGN(size int) int {
	return align(size, unix.NLMSG_ALIGNTO)
}

func NLA_ALIGN(size int) int {
	return align(size, unix.NLA_ALIGNTO)
}

// SizeofCInt is the width of the C int used by the kernel for error codes.
const SizeofCInt = unix.SizeofInt

// Pad appends zero bytes to b up to the next 4 byte boundary.
func Pad(b []byte) []byte {
	if n := NLA_ALIGN(len(b)) - len(b); n > 0 {
		return append(b, make([]byte, n)...)
	}
	return b
}

func checkWidth(b []byte, width int) error {
	switch width {
	case 1, 2, 4, 8:
	default:
		return errors.Wrapf(NLE_RANGE, "integer width %d", width)
	}
	if len(b) < width {
		return errors.Wrapf(NLE_MSG_TOOSHORT, "need %d bytes, have %d", width, len(b))
	}
	return nil
}

// PutUint stores the low width bytes of v into b in host byte order.
func PutUint(b []byte, v uint64, width int) error {
	if err := checkWidth(b, width); err != nil {
		return err
	}
	switch width {
	case 1:
		b[0] = uint8(v)
	case 2:
		native.Endian.PutUint16(b, uint16(v))
	case 4:
		native.Endian.PutUint32(b, uint32(v))
	case 8:
		native.Endian.PutUint64(b, v)
	}
	return nil
}

func Uint(b []byte, width int) (uint64, error) {
	if err := checkWidth(b, width); err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(native.Endian.Uint16(b)), nil
	case 4:
		return uint64(native.Endian.Uint32(b)), nil
	default:
		return native.Endian.Uint64(b), nil
	}
}

func PutInt(b []byte, v int64, width int) error {
	return PutUint(b, uint64(v), width)
}

// Int reads a signed integer of the given width, sign extending it.
func Int(b []byte, width int) (int64, error) {
	if u, err := Uint(b, width); err != nil {
		return 0, err
	} else {
		switch width {
		case 1:
			return int64(int8(u)), nil
		case 2:
			return int64(int16(u)), nil
		case 4:
			return int64(int32(u)), nil
		default:
			return int64(u), nil
		}
	}
}
