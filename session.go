package nlmsg

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Transport moves whole netlink datagrams. Receive with max <= 0 returns
// the next datagram whatever its size.
type Transport interface {
	Send(ctx context.Context, b []byte) (int, error)
	Receive(ctx context.Context, max int) ([]byte, unix.Sockaddr, error)
	Pid() uint32
	JoinGroup(group uint32) error
	LeaveGroup(group uint32) error
	Close() error
}

type Config struct {
	// Groups are joined right after the socket is bound.
	Groups []uint32
	// ReadBufferSize and WriteBufferSize default to 32768.
	ReadBufferSize  int
	WriteBufferSize int
	// Pid binds to a fixed port id instead of allocating one.
	Pid uint32
	// NoAutoAck stops Send from setting NLM_F_ACK.
	NoAutoAck bool
	Logger    *logrus.Entry
	Registry  *Registry
}

const NL_AUTO_PORT = 0
const NL_AUTO_SEQ = 0

// Session numbers outgoing requests and collects their replies.
type Session struct {
	transport Transport
	registry  *Registry
	log       *logrus.Entry
	noAutoAck bool

	lock    sync.Mutex
	seqNext uint32
}

func NewSession(t Transport, cfg *Config) *Session {
	if cfg == nil {
		cfg = &Config{}
	}
	self := &Session{
		transport: t,
		registry:  cfg.Registry,
		log:       cfg.Logger,
		noAutoAck: cfg.NoAutoAck,
		seqNext:   uint32(time.Now().Unix()),
	}
	if self.registry == nil {
		self.registry = DefaultRegistry
	}
	if self.log == nil {
		self.log = logrus.WithField("component", "nlmsg")
	}
	return self
}

func (self *Session) Pid() uint32 {
	return self.transport.Pid()
}

func (self *Session) nextSeq() uint32 {
	seq := self.seqNext
	if seq == NL_AUTO_SEQ {
		seq++
	}
	self.seqNext = seq + 1
	return seq
}

// Send completes the header of m and writes it. Unset Pid and Seq are
// filled in, NLM_F_REQUEST is always set, and NLM_F_ACK unless the session
// was configured with NoAutoAck. The completed header is returned.
func (self *Session) Send(ctx context.Context, m Message) (Header, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	hdr := m.NlHeader()
	if hdr.Pid == NL_AUTO_PORT {
		hdr.Pid = self.transport.Pid()
	}
	if hdr.Seq == NL_AUTO_SEQ {
		hdr.Seq = self.nextSeq()
	}
	hdr.Flags |= unix.NLM_F_REQUEST
	if !self.noAutoAck {
		hdr.Flags |= unix.NLM_F_ACK
	}
	b, err := m.MarshalBinary()
	if err != nil {
		return *hdr, errors.Wrapf(err, "encode %s", MessageTypeName(hdr.Type))
	}
	if _, err := self.transport.Send(ctx, b); err != nil {
		return *hdr, errors.Wrap(err, "netlink send")
	}
	self.log.WithFields(logrus.Fields{
		"type":  MessageTypeName(hdr.Type),
		"seq":   hdr.Seq,
		"flags": NlmFlags.String(uint32(hdr.Flags)),
		"len":   hdr.Len,
	}).Debug("sent")
	return *hdr, nil
}

// Receive reads one datagram and decodes every message in it. A message
// that fails to decode fails the whole datagram.
func (self *Session) Receive(ctx context.Context) ([]Message, error) {
	msgs, _, err := self.receive(ctx)
	return msgs, err
}

func (self *Session) receive(ctx context.Context) ([]Message, unix.Sockaddr, error) {
	b, from, err := self.transport.Receive(ctx, 0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "netlink receive")
	}
	msgs, err := self.registry.DecodeAll(b)
	if err != nil {
		return nil, nil, err
	}
	for _, msg := range msgs {
		hdr := msg.NlHeader()
		self.log.WithFields(logrus.Fields{
			"type":  MessageTypeName(hdr.Type),
			"seq":   hdr.Seq,
			"flags": NlmFlags.String(uint32(hdr.Flags)),
			"len":   hdr.Len,
		}).Debug("received")
	}
	return msgs, from, nil
}

// Execute sends m and collects the replies to it. Multipart replies are
// gathered until NLMSG_DONE. An acknowledgement ends the exchange and is
// not returned, and a kernel error is returned as *KernelError.
func (self *Session) Execute(ctx context.Context, m Message) ([]Message, error) {
	req, err := self.Send(ctx, m)
	if err != nil {
		return nil, err
	}
	var ret []Message
	for {
		msgs, err := self.Receive(ctx)
		if err != nil {
			return nil, err
		}
		for _, msg := range msgs {
			hdr := msg.NlHeader()
			if hdr.Seq != req.Seq {
				self.log.WithFields(logrus.Fields{
					"type": MessageTypeName(hdr.Type),
					"seq":  hdr.Seq,
					"want": req.Seq,
				}).Warn("skipping message from another exchange")
				continue
			}
			if hdr.Flags&unix.NLM_F_DUMP_INTR != 0 {
				return nil, errors.Wrapf(NLE_DUMP_INTR, "%s seq %d", MessageTypeName(req.Type), req.Seq)
			}
			switch v := msg.(type) {
			case *ErrorMessage:
				if err := v.Err(); err != nil {
					return nil, err
				}
				return ret, nil
			case *DoneMessage:
				if err := v.Err(); err != nil {
					return nil, err
				}
				return ret, nil
			}
			switch hdr.Type {
			case unix.NLMSG_NOOP:
				continue
			case unix.NLMSG_OVERRUN:
				return nil, errors.Wrapf(NLE_MSG_OVERFLOW, "seq %d", req.Seq)
			}
			ret = append(ret, msg)
			if !hdr.Multi() && req.Flags&unix.NLM_F_ACK == 0 {
				return ret, nil
			}
		}
	}
}

func (self *Session) JoinGroup(group uint32) error {
	if err := self.transport.JoinGroup(group); err != nil {
		return errors.Wrapf(err, "join group %d", group)
	}
	return nil
}

func (self *Session) LeaveGroup(group uint32) error {
	if err := self.transport.LeaveGroup(group); err != nil {
		return errors.Wrapf(err, "leave group %d", group)
	}
	return nil
}

func (self *Session) Close() error {
	return self.transport.Close()
}
