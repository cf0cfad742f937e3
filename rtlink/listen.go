package rtlink

import (
	"context"

	"github.com/hkwi/nlmsg"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Event struct {
	Deleted bool
	Link    Link
}

// Listener follows RTNLGRP_LINK. It starts with a dump so that the first
// events describe every existing link.
type Listener struct {
	session *nlmsg.Session
	init    bool
	start   uint32
}

func NewListener(ctx context.Context) (*Listener, error) {
	session, err := nlmsg.Dial(unix.NETLINK_ROUTE, &nlmsg.Config{
		Groups:    []uint32{unix.RTNLGRP_LINK},
		NoAutoAck: true,
	})
	if err != nil {
		return nil, err
	}
	if self, err := Listen(ctx, session); err != nil {
		session.Close()
		return nil, err
	} else {
		return self, nil
	}
}

// Listen starts a Listener on a session that is already a member of
// RTNLGRP_LINK.
func Listen(ctx context.Context, session *nlmsg.Session) (*Listener, error) {
	req := nlmsg.NewGetLinkRequest()
	req.Header.Flags &^= unix.NLM_F_ACK
	if hdr, err := session.Send(ctx, req); err != nil {
		return nil, err
	} else {
		return &Listener{
			session: session,
			start:   hdr.Seq,
		}, nil
	}
}

// Recv returns the RTM_NEWLINK and RTM_DELLINK events of the next
// datagram, including the initial dump.
func (self *Listener) Recv(ctx context.Context) ([]Event, error) {
	msgs, err := self.session.Receive(ctx)
	if err != nil {
		return nil, err
	}
	var ret []Event
	for _, msg := range msgs {
		hdr := msg.NlHeader()
		if !self.init {
			if hdr.Seq != self.start {
				continue
			}
			self.init = true
		}
		switch m := msg.(type) {
		case *nlmsg.ErrorMessage:
			if err := m.Err(); err != nil {
				return nil, err
			}
			return nil, errors.New("unexpected ACK")
		case *nlmsg.DoneMessage:
			if err := m.Err(); err != nil {
				return nil, err
			}
			return ret, nil
		case *nlmsg.LinkMessage:
			if link, err := FromMessage(m); err != nil {
				return nil, err
			} else {
				ret = append(ret, Event{
					Deleted: hdr.Type == unix.RTM_DELLINK,
					Link:    link,
				})
			}
		default:
			return nil, errors.Errorf("unexpected %v", *hdr)
		}
	}
	return ret, nil
}

func (self *Listener) Close() error {
	return self.session.Close()
}
