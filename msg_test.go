package nlmsg

import (
	"testing"

	"github.com/josharian/native"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func headerBytes(length uint32, typ, flags uint16, seq, pid uint32) []byte {
	b := make([]byte, 16)
	native.Endian.PutUint32(b[0:], length)
	native.Endian.PutUint16(b[4:], typ)
	native.Endian.PutUint16(b[6:], flags)
	native.Endian.PutUint32(b[8:], seq)
	native.Endian.PutUint32(b[12:], pid)
	return b
}

func TestHeaderEncode(t *testing.T) {
	m := &GenericMessage{Header: Header{Type: 1, Seq: 2, Pid: 3}}
	b, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, headerBytes(16, 1, 0, 2, 3), b)
	assert.Equal(t, uint32(16), m.Len)
}

func TestHeaderFlagsAsNames(t *testing.T) {
	m := &GenericMessage{Header: Header{Type: 1, Seq: 2, Pid: 3}}
	require.NoError(t, m.SetFlags([]string{"request", "ack"}))
	b, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, headerBytes(16, 1, 0x05, 2, 3), b)

	byInt := &GenericMessage{Header: Header{Type: 1, Seq: 2, Pid: 3}}
	require.NoError(t, byInt.SetFlags(0x05))
	b2, err := byInt.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, b, b2)

	hdr, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"request", "ack"}, hdr.FlagNames())
}

func TestHeaderFlagsOutOfRange(t *testing.T) {
	hdr := Header{Flags: unix.NLM_F_REQUEST}
	err := hdr.SetFlags(0x10005)
	assert.Equal(t, NLE_RANGE, errors.Cause(err))
	assert.Equal(t, uint16(unix.NLM_F_REQUEST), hdr.Flags)

	require.NoError(t, hdr.SetFlags(uint32(0xFFFF)))
	assert.Equal(t, uint16(0xFFFF), hdr.Flags)
}

func TestLengthIsRecomputed(t *testing.T) {
	m := &GenericMessage{Header: Header{Len: 999, Type: 100}, Data: []byte{1, 2, 3, 4, 5}}
	b, err := m.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 24)

	hdr, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(b)), hdr.Len)
}

func TestDecodeHeaderErrors(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 15))
	assert.Equal(t, NLE_MSG_TOOSHORT, errors.Cause(err))

	_, err = DecodeHeader(headerBytes(8, 1, 0, 0, 0))
	assert.Equal(t, NLE_RANGE, errors.Cause(err))

	_, err = DecodeHeader(headerBytes(0, 1, 0, 0, 0))
	assert.Equal(t, NLE_RANGE, errors.Cause(err))

	_, err = DecodeHeader(headerBytes(32, 1, 0, 0, 0))
	assert.Equal(t, NLE_MSG_TRUNC, errors.Cause(err))
}

func TestGenericRoundTrip(t *testing.T) {
	m := &GenericMessage{Header: Header{Type: 100, Flags: unix.NLM_F_MULTI, Seq: 7, Pid: 8}, Data: []byte("payload")}
	b, err := m.MarshalBinary()
	require.NoError(t, err)

	got := &GenericMessage{}
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, m.Header, got.Header)
	assert.True(t, got.Multi())
	assert.Equal(t, []byte("payload\x00"), got.Data)
	assert.Nil(t, got.Attributes())
}

func TestMessageTypeName(t *testing.T) {
	assert.Equal(t, "NLMSG_ERROR", MessageTypeName(unix.NLMSG_ERROR))
	assert.Equal(t, "RTM_NEWLINK", MessageTypeName(unix.RTM_NEWLINK))
	assert.Equal(t, "type(1000)", MessageTypeName(1000))
}
