package nlmsg

import (
	"syscall"
	"testing"

	"github.com/josharian/native"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func errorBytes(code int32, orig []byte, flags uint16) []byte {
	body := make([]byte, 4)
	native.Endian.PutUint32(body, uint32(code))
	body = append(body, orig...)
	b := headerBytes(uint32(16+len(body)), unix.NLMSG_ERROR, flags, 9, 0)
	return append(b, body...)
}

func TestErrorAck(t *testing.T) {
	b := errorBytes(0, headerBytes(32, unix.RTM_NEWLINK, 5, 9, 100), 0)
	msg, n, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, len(b), n)

	m, ok := msg.(*ErrorMessage)
	require.True(t, ok)
	assert.True(t, m.Ack())
	assert.NoError(t, m.Err())
	assert.Equal(t, "ACK", m.ErrorString())
	assert.Equal(t, uint16(unix.RTM_NEWLINK), m.OrigHeader.Type)
	assert.Equal(t, uint32(100), m.OrigHeader.Pid)
}

func TestErrorNoEnt(t *testing.T) {
	b := errorBytes(-2, headerBytes(16, unix.RTM_GETLINK, 5, 9, 100), 0)
	msg, _, err := Decode(b)
	require.NoError(t, err)

	m := msg.(*ErrorMessage)
	assert.False(t, m.Ack())
	assert.Equal(t, int32(-2), m.Error)
	assert.Equal(t, "ENOENT,no such file or directory", m.ErrorString())

	err = m.Err()
	var ke *KernelError
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, "ENOENT", ke.Name())
	assert.Equal(t, uint32(9), ke.Header.Seq)
	assert.True(t, errors.Is(err, syscall.ENOENT))
	assert.Contains(t, err.Error(), "no such file or directory")
}

func TestErrorExtAck(t *testing.T) {
	req := headerBytes(24, unix.RTM_NEWLINK, 5, 9, 100)
	req = append(req, 1, 2, 3, 4, 5, 6, 7, 8)
	msgAttr, _ := NewStringAttr(NLMSGERR_ATTR_MSG, "Unknown device type").MarshalBinary()
	offsAttr, _ := NewU32Attr(NLMSGERR_ATTR_OFFS, 32).MarshalBinary()
	b := errorBytes(-int32(syscall.EOPNOTSUPP), append(append(req, msgAttr...), offsAttr...), unix.NLM_F_ACK_TLVS)

	msg, _, err := Decode(b)
	require.NoError(t, err)
	m := msg.(*ErrorMessage)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, m.OrigData)
	assert.Equal(t, "Unknown device type", m.ExtAckMsg())
	off, ok := m.ExtAckOffset()
	assert.True(t, ok)
	assert.Equal(t, uint32(32), off)
	assert.Contains(t, m.Err().Error(), "Unknown device type")

	again, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestErrorExtAckCapped(t *testing.T) {
	msgAttr, _ := NewStringAttr(NLMSGERR_ATTR_MSG, "bad").MarshalBinary()
	b := errorBytes(-22, append(headerBytes(64, unix.RTM_NEWLINK, 5, 9, 100), msgAttr...),
		unix.NLM_F_ACK_TLVS|unix.NLM_F_CAPPED)
	msg, _, err := Decode(b)
	require.NoError(t, err)
	m := msg.(*ErrorMessage)
	assert.Empty(t, m.OrigData)
	assert.Equal(t, "bad", m.ExtAckMsg())
	assert.Equal(t, uint32(64), m.OrigHeader.Len)
}

func TestErrorTooShort(t *testing.T) {
	b := headerBytes(24, unix.NLMSG_ERROR, 0, 1, 0)
	b = append(b, 0, 0, 0, 0, 0, 0, 0, 0)
	_, _, err := Decode(b)
	assert.Equal(t, NLE_MSG_TOOSHORT, errors.Cause(err))
}

func TestErrorRoundTrip(t *testing.T) {
	m := &ErrorMessage{
		Header:     Header{Type: unix.NLMSG_ERROR, Seq: 4},
		Error:      -int32(syscall.EEXIST),
		OrigHeader: Header{Len: 16, Type: unix.RTM_NEWLINK, Seq: 4},
	}
	b, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, 36)

	got := &ErrorMessage{}
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, m.Error, got.Error)
	assert.Equal(t, m.OrigHeader, got.OrigHeader)
	assert.Equal(t, "EEXIST", got.Err().(*KernelError).Name())
}

func TestDone(t *testing.T) {
	msg, _, err := Decode(headerBytes(16, unix.NLMSG_DONE, unix.NLM_F_MULTI, 3, 0))
	require.NoError(t, err)
	done, ok := msg.(*DoneMessage)
	require.True(t, ok)
	assert.NoError(t, done.Err())

	m := &DoneMessage{Header: Header{Type: unix.NLMSG_DONE, Seq: 3}, Error: -int32(syscall.EINTR)}
	b, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, 20)
	msg, _, err = Decode(b)
	require.NoError(t, err)
	assert.True(t, errors.Is(msg.(*DoneMessage).Err(), syscall.EINTR))
}

func TestErrorExtAckSetsFlags(t *testing.T) {
	m := &ErrorMessage{
		Header:     Header{Type: unix.NLMSG_ERROR, Seq: 4},
		Error:      -int32(syscall.EINVAL),
		OrigHeader: Header{Len: 40, Type: unix.RTM_NEWLINK, Seq: 4},
		ExtAck:     AttrList{NewStringAttr(NLMSGERR_ATTR_MSG, "invalid mtu")},
	}
	b, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, uint16(unix.NLM_F_CAPPED|unix.NLM_F_ACK_TLVS), m.Flags)

	got := &ErrorMessage{}
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Empty(t, got.OrigData)
	assert.Equal(t, "invalid mtu", got.ExtAckMsg())
	assert.Equal(t, m.OrigHeader, got.OrigHeader)

	withBody := &ErrorMessage{
		Header:     Header{Type: unix.NLMSG_ERROR, Seq: 5},
		Error:      -int32(syscall.EINVAL),
		OrigHeader: Header{Len: 20, Type: unix.RTM_NEWLINK, Seq: 5},
		OrigData:   []byte{1, 2, 3, 4},
		ExtAck:     AttrList{NewU32Attr(NLMSGERR_ATTR_OFFS, 16)},
	}
	b, err = withBody.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, uint16(unix.NLM_F_ACK_TLVS), withBody.Flags)
	got = &ErrorMessage{}
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, []byte{1, 2, 3, 4}, got.OrigData)
	off, ok := got.ExtAckOffset()
	assert.True(t, ok)
	assert.Equal(t, uint32(16), off)
}

func TestDoneExtAckSetsFlags(t *testing.T) {
	m := &DoneMessage{
		Header: Header{Type: unix.NLMSG_DONE, Flags: unix.NLM_F_MULTI, Seq: 6},
		Error:  -int32(syscall.EINTR),
		ExtAck: AttrList{NewStringAttr(NLMSGERR_ATTR_MSG, "dump interrupted")},
	}
	b, err := m.MarshalBinary()
	require.NoError(t, err)

	got := &DoneMessage{}
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, "dump interrupted", got.ExtAck.Get(NLMSGERR_ATTR_MSG))
	assert.Contains(t, got.Err().Error(), "dump interrupted")
}
