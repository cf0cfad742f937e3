// Package nltest provides an in-memory netlink transport for tests.
package nltest

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Func answers one request datagram with zero or more reply datagrams.
// A returned error is handed back by Send.
type Func func(req []byte) ([][]byte, error)

type datagram struct {
	b      []byte
	groups uint32
}

// Transport satisfies nlmsg.Transport without a kernel. Replies produced
// by Fn and datagrams pushed with Multicast are read back in order.
type Transport struct {
	Fn  Func
	pid uint32

	lock   sync.Mutex
	sent   [][]byte
	groups map[uint32]bool
	queue  chan datagram
	closed chan struct{}
	once   sync.Once
}

func New(pid uint32, fn Func) *Transport {
	return &Transport{
		Fn:     fn,
		pid:    pid,
		groups: make(map[uint32]bool),
		queue:  make(chan datagram, 64),
		closed: make(chan struct{}),
	}
}

func (self *Transport) Pid() uint32 { return self.pid }

func (self *Transport) Send(ctx context.Context, b []byte) (int, error) {
	select {
	case <-self.closed:
		return 0, os.ErrClosed
	default:
	}
	req := append([]byte(nil), b...)
	self.lock.Lock()
	self.sent = append(self.sent, req)
	self.lock.Unlock()

	if self.Fn == nil {
		return len(b), nil
	}
	replies, err := self.Fn(req)
	if err != nil {
		return 0, err
	}
	for _, r := range replies {
		if err := self.push(ctx, datagram{b: r}); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (self *Transport) push(ctx context.Context, d datagram) error {
	select {
	case self.queue <- d:
		return nil
	case <-self.closed:
		return os.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Multicast queues an unsolicited datagram as if it came from the given
// group bitmask.
func (self *Transport) Multicast(ctx context.Context, groups uint32, b []byte) error {
	return self.push(ctx, datagram{b: b, groups: groups})
}

func (self *Transport) Receive(ctx context.Context, max int) ([]byte, unix.Sockaddr, error) {
	select {
	case d := <-self.queue:
		b := d.b
		if max > 0 && len(b) > max {
			b = b[:max]
		}
		return b, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: d.groups}, nil
	case <-self.closed:
		return nil, nil, os.ErrClosed
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func (self *Transport) JoinGroup(group uint32) error {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.groups[group] = true
	return nil
}

func (self *Transport) LeaveGroup(group uint32) error {
	self.lock.Lock()
	defer self.lock.Unlock()
	delete(self.groups, group)
	return nil
}

// Member reports whether the group is currently joined.
func (self *Transport) Member(group uint32) bool {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.groups[group]
}

// Sent returns copies of the datagrams written so far.
func (self *Transport) Sent() [][]byte {
	self.lock.Lock()
	defer self.lock.Unlock()
	return append([][]byte(nil), self.sent...)
}

func (self *Transport) Close() error {
	self.once.Do(func() { close(self.closed) })
	return nil
}
