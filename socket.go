//go:build linux
// +build linux

package nlmsg

import (
	"context"
	"os"
	"sync"

	"github.com/mdlayher/socket"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var pidLock = &sync.Mutex{}
var pidUsed = make(map[int]bool)

// sockTransport is a raw AF_NETLINK socket.
type sockTransport struct {
	conn *socket.Conn
	pid  uint32
	high int
}

// Dial opens a netlink socket of the given protocol family, such as
// unix.NETLINK_ROUTE, and wraps it in a Session.
func Dial(family int, cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if t, err := dialTransport(family, cfg); err != nil {
		return nil, err
	} else {
		return NewSession(t, cfg), nil
	}
}

func dialTransport(family int, cfg *Config) (*sockTransport, error) {
	conn, err := socket.Socket(unix.AF_NETLINK, unix.SOCK_RAW, family, "netlink", nil)
	if err != nil {
		return nil, errors.Wrap(err, "netlink socket")
	}
	self := &sockTransport{conn: conn, high: -1}

	rxbuf, txbuf := cfg.ReadBufferSize, cfg.WriteBufferSize
	if rxbuf <= 0 {
		rxbuf = 32768
	}
	if txbuf <= 0 {
		txbuf = 32768
	}
	if err := conn.SetReadBuffer(rxbuf); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "netlink read buffer")
	}
	if err := conn.SetWriteBuffer(txbuf); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "netlink write buffer")
	}
	if err := self.bind(cfg.Pid); err != nil {
		conn.Close()
		return nil, err
	}
	for _, group := range cfg.Groups {
		if err := self.JoinGroup(group); err != nil {
			self.Close()
			return nil, err
		}
	}
	return self, nil
}

// bind uses the given port id, or allocates one as (high << 22) | pid so
// that several sockets of one process get distinct ids.
func (self *sockTransport) bind(pid uint32) error {
	if pid != NL_AUTO_PORT {
		if err := self.conn.Bind(&unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: pid}); err != nil {
			return errors.Wrapf(err, "netlink bind %d", pid)
		}
		self.pid = pid
		return nil
	}

	local := os.Getpid()
	for high := 1023; high > 0; high-- {
		if next := func() bool {
			pidLock.Lock()
			defer pidLock.Unlock()
			if _, exists := pidUsed[high]; !exists {
				pidUsed[high] = true
				return false
			}
			return true
		}(); next {
			continue
		}

		pid := uint32((high << 22) | (local & 0x3FFFFF))
		if err := self.conn.Bind(&unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: pid}); err == nil {
			self.pid = pid
			self.high = high
			return nil
		} else if !errors.Is(err, unix.EADDRINUSE) {
			releasePid(high)
			return errors.Wrap(err, "netlink bind")
		}
	}
	return NLE_EXIST
}

func releasePid(high int) {
	pidLock.Lock()
	defer pidLock.Unlock()
	delete(pidUsed, high)
}

func (self *sockTransport) Pid() uint32 {
	return self.pid
}

func (self *sockTransport) Send(ctx context.Context, b []byte) (int, error) {
	if err := self.conn.Sendto(ctx, b, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (self *sockTransport) Receive(ctx context.Context, max int) ([]byte, unix.Sockaddr, error) {
	if max <= 0 {
		max = os.Getpagesize()
		for {
			buf := make([]byte, max)
			if n, _, err := self.conn.Recvfrom(ctx, buf, unix.MSG_PEEK|unix.MSG_TRUNC); err != nil {
				return nil, nil, err
			} else if n <= max {
				break
			} else {
				max = NLMSG_ALIGN(n)
			}
		}
	}
	buf := make([]byte, max)
	n, from, err := self.conn.Recvfrom(ctx, buf, 0)
	if err != nil {
		return nil, nil, err
	}
	return buf[:n], from, nil
}

func (self *sockTransport) JoinGroup(group uint32) error {
	return self.conn.SetsockoptInt(unix.SOL_NETLINK, unix.NETLINK_ADD_MEMBERSHIP, int(group))
}

func (self *sockTransport) LeaveGroup(group uint32) error {
	return self.conn.SetsockoptInt(unix.SOL_NETLINK, unix.NETLINK_DROP_MEMBERSHIP, int(group))
}

func (self *sockTransport) Close() error {
	err := self.conn.Close()
	if self.high > 0 {
		releasePid(self.high)
		self.high = -1
	}
	return err
}
