package nlmsg

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Listener receives multicast messages from a Hub. Implementations must be
// comparable, since Remove matches them by equality.
type Listener interface {
	NlListen(Message)
}

type pending struct {
	ctx context.Context
	ack bool
	ch  chan Message
}

// Hub shares one Session between concurrent requests and multicast
// listeners. A background goroutine reads the session and routes replies
// by sequence number.
type Hub struct {
	session   *Session
	lock      sync.Mutex
	unicast   map[uint32]*pending
	multicast map[uint32][]Listener
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewHub(s *Session) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	self := &Hub{
		session:   s,
		unicast:   make(map[uint32]*pending),
		multicast: make(map[uint32][]Listener),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go self.run(ctx)
	return self
}

func (self *Hub) run(ctx context.Context) {
	defer close(self.done)
	defer self.closePending()
	for {
		msgs, from, err := self.session.receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return
			}
			self.session.log.WithError(err).Error("hub receive")
			continue
		}
		var groups uint32
		if sa, ok := from.(*unix.SockaddrNetlink); ok {
			groups = sa.Groups
		}
		for _, msg := range msgs {
			if seq := msg.NlHeader().Seq; seq == 0 {
				self.deliverMulticast(groups, msg)
			} else {
				self.deliverUnicast(ctx, seq, msg)
			}
		}
	}
}

func (self *Hub) deliverMulticast(groups uint32, msg Message) {
	var listeners []Listener
	self.lock.Lock()
	for group, li := range self.multicast {
		if groups == 0 || group == 0 || group > 32 || groups&(1<<(group-1)) != 0 {
			listeners = append(listeners, li...)
		}
	}
	self.lock.Unlock()

	for _, listener := range listeners {
		listener.NlListen(msg)
	}
}

// deliverUnicast blocks until the requester reads msg, its context ends or
// the hub is closed.
func (self *Hub) deliverUnicast(ctx context.Context, seq uint32, msg Message) {
	hdr := msg.NlHeader()
	final := false
	switch hdr.Type {
	case unix.NLMSG_DONE, unix.NLMSG_ERROR:
		final = true
	}

	self.lock.Lock()
	p := self.unicast[seq]
	if p != nil && !final && !p.ack && !hdr.Multi() {
		final = true
	}
	if p != nil && final {
		delete(self.unicast, seq)
	}
	self.lock.Unlock()

	if p == nil {
		return
	}
	select {
	case p.ch <- msg:
	case <-p.ctx.Done():
		self.drop(seq, p)
		final = true
	case <-ctx.Done():
		self.drop(seq, p)
		final = true
	}
	if final {
		close(p.ch)
	}
}

func (self *Hub) drop(seq uint32, p *pending) {
	self.lock.Lock()
	defer self.lock.Unlock()
	if self.unicast[seq] == p {
		delete(self.unicast, seq)
	}
}

func (self *Hub) closePending() {
	self.lock.Lock()
	defer self.lock.Unlock()
	for seq, p := range self.unicast {
		close(p.ch)
		delete(self.unicast, seq)
	}
}

// Request sends m and returns a channel of its replies, including the
// final NLMSG_DONE or NLMSG_ERROR. The channel is closed after the last
// reply, when ctx is done, or when the hub is closed. Replies are not
// buffered: a caller that stops reading must cancel ctx.
func (self *Hub) Request(ctx context.Context, m Message) (<-chan Message, error) {
	self.lock.Lock()
	defer self.lock.Unlock()

	hdr, err := self.session.Send(ctx, m)
	if err != nil {
		return nil, err
	}
	p := &pending{
		ctx: ctx,
		ack: hdr.Flags&unix.NLM_F_ACK != 0,
		ch:  make(chan Message),
	}
	self.unicast[hdr.Seq] = p
	return p.ch, nil
}

// Add registers a listener for a multicast group, joining the group for
// the first listener.
func (self *Hub) Add(group uint32, listener Listener) error {
	self.lock.Lock()
	defer self.lock.Unlock()

	if len(self.multicast[group]) == 0 {
		if err := self.session.JoinGroup(group); err != nil {
			return err
		}
	}
	self.multicast[group] = append(self.multicast[group], listener)
	return nil
}

// Remove unregisters a listener, leaving the group after the last one.
func (self *Hub) Remove(group uint32, listener Listener) error {
	self.lock.Lock()
	defer self.lock.Unlock()

	var active []Listener
	for _, li := range self.multicast[group] {
		if li != listener {
			active = append(active, li)
		}
	}
	if len(active) == 0 {
		delete(self.multicast, group)
		if err := self.session.LeaveGroup(group); err != nil {
			return err
		}
	} else {
		self.multicast[group] = active
	}
	return nil
}

// Close stops the receive goroutine and closes the session.
func (self *Hub) Close() error {
	self.cancel()
	err := self.session.Close()
	<-self.done
	return err
}
