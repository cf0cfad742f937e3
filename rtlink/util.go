package rtlink

import (
	"context"

	"github.com/hkwi/nlmsg"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Executor is satisfied by *nlmsg.Session.
type Executor interface {
	Execute(ctx context.Context, m nlmsg.Message) ([]nlmsg.Message, error)
}

func links(msgs []nlmsg.Message) ([]Link, error) {
	var ret []Link
	for _, msg := range msgs {
		if m, ok := msg.(*nlmsg.LinkMessage); ok {
			if link, err := FromMessage(m); err != nil {
				return nil, err
			} else {
				ret = append(ret, link)
			}
		}
	}
	return ret, nil
}

// List dumps all links.
func List(ctx context.Context, ex Executor) ([]Link, error) {
	if msgs, err := ex.Execute(ctx, nlmsg.NewGetLinkRequest()); err != nil {
		return nil, err
	} else {
		return links(msgs)
	}
}

func get(ctx context.Context, ex Executor, req *nlmsg.LinkMessage) (Link, error) {
	if msgs, err := ex.Execute(ctx, req); err != nil {
		return Link{}, err
	} else if ret, err := links(msgs); err != nil {
		return Link{}, err
	} else if len(ret) == 0 {
		return Link{}, errors.Wrap(nlmsg.NLE_OBJ_NOTFOUND, "response empty")
	} else {
		return ret[0], nil
	}
}

func GetByName(ctx context.Context, ex Executor, name string) (Link, error) {
	req := nlmsg.NewLinkMessage()
	req.Header.Type = unix.RTM_GETLINK
	req.Attrs.Set(nlmsg.NewStringAttr(nlmsg.IFLA_IFNAME, name))
	if link, err := get(ctx, ex, req); err != nil {
		return link, errors.Wrapf(err, "link %q", name)
	} else {
		return link, nil
	}
}

func GetByIndex(ctx context.Context, ex Executor, index uint32) (Link, error) {
	req := nlmsg.NewLinkMessage()
	req.Header.Type = unix.RTM_GETLINK
	req.Info.Index = index
	if link, err := get(ctx, ex, req); err != nil {
		return link, errors.Wrapf(err, "link %d", index)
	} else {
		return link, nil
	}
}

func GetNameByIndex(ctx context.Context, ex Executor, index uint32) (string, error) {
	if link, err := GetByIndex(ctx, ex, index); err != nil {
		return "", err
	} else {
		return link.Name, nil
	}
}

// Set sends an RTM_NEWLINK request built from link and waits for the ack.
func Set(ctx context.Context, ex Executor, link Link) error {
	_, err := ex.Execute(ctx, link.Message())
	return err
}
