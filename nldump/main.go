package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hkwi/nlmsg"
	"github.com/hkwi/nlmsg/rtlink"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

type config struct {
	Debug  bool
	Raw    bool
	RcvBuf int
	Name   string
}

var cfg config

func main() {
	app := &cli.App{
		Name:  "nldump",
		Usage: "dump and monitor rtnetlink links",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "log every netlink message sent and received",
				EnvVars:     []string{"NLDUMP_DEBUG"},
				Destination: &cfg.Debug,
			},
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print decoded messages instead of links",
				EnvVars:     []string{"NLDUMP_RAW"},
				Destination: &cfg.Raw,
			},
			&cli.IntFlag{
				Name:        "rcvbuf",
				Usage:       "socket receive buffer size",
				EnvVars:     []string{"NLDUMP_RCVBUF"},
				Destination: &cfg.RcvBuf,
			},
		},
		Before: func(c *cli.Context) error {
			if cfg.Debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "links",
				Usage: "list links",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "name",
						Usage:       "show only the named link",
						Destination: &cfg.Name,
					},
				},
				Action: links,
			},
			{
				Name:   "monitor",
				Usage:  "print existing links, then every link change",
				Action: monitor,
			},
		},
		DefaultCommand: "links",
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func dial(groups ...uint32) (*nlmsg.Session, error) {
	return nlmsg.Dial(unix.NETLINK_ROUTE, &nlmsg.Config{
		Groups:         groups,
		ReadBufferSize: cfg.RcvBuf,
		Logger:         logrus.WithField("component", "nldump"),
	})
}

func printLink(deleted bool, link rtlink.Link) {
	prefix := ""
	if deleted {
		prefix = "Deleted "
	}
	fmt.Printf("%s%d: %s: <%s> mtu %d qdisc %s state %s mode %s group %d qlen %d\n",
		prefix, link.Index, link.Name, strings.ToUpper(strings.Join(link.FlagNames(), ",")),
		link.MTU, link.Qdisc, strings.ToUpper(link.OperState.String()),
		strings.ToUpper(link.LinkMode.String()), link.Group, link.TxQLen)
	fmt.Printf("    link/%s %s brd %s\n", strings.ToLower(link.Type.String()), link.Address, link.Broadcast)
	if link.Kind != "" {
		fmt.Printf("    %s\n", link.Kind)
	}
}

func printMessage(msg nlmsg.Message) {
	switch m := msg.(type) {
	case *nlmsg.LinkMessage:
		if cfg.Raw {
			fmt.Println(m)
		} else if link, err := rtlink.FromMessage(m); err != nil {
			logrus.WithError(err).Warn("bad link message")
		} else {
			printLink(m.Header.Type == unix.RTM_DELLINK, link)
		}
	case *nlmsg.ErrorMessage:
		if cfg.Raw {
			fmt.Println(m.Header, m.ErrorString())
		}
	default:
		if cfg.Raw {
			fmt.Println(m.NlHeader())
		}
	}
}

func links(c *cli.Context) error {
	session, err := dial()
	if err != nil {
		return err
	}
	defer session.Close()

	ctx := c.Context
	if cfg.Name != "" {
		if link, err := rtlink.GetByName(ctx, session, cfg.Name); err != nil {
			return err
		} else {
			printLink(false, link)
			return nil
		}
	}
	if cfg.Raw {
		if msgs, err := session.Execute(ctx, nlmsg.NewGetLinkRequest()); err != nil {
			return err
		} else {
			for _, msg := range msgs {
				printMessage(msg)
			}
		}
		return nil
	}
	if all, err := rtlink.List(ctx, session); err != nil {
		return err
	} else {
		for _, link := range all {
			printLink(false, link)
		}
	}
	return nil
}

type printer struct{}

func (self *printer) NlListen(msg nlmsg.Message) {
	printMessage(msg)
}

func monitor(c *cli.Context) error {
	session, err := dial()
	if err != nil {
		return err
	}
	hub := nlmsg.NewHub(session)
	defer hub.Close()

	listener := &printer{}
	if err := hub.Add(unix.RTNLGRP_LINK, listener); err != nil {
		return err
	}
	defer hub.Remove(unix.RTNLGRP_LINK, listener)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		replies, err := hub.Request(ctx, nlmsg.NewGetLinkRequest())
		if err != nil {
			return err
		}
		for msg := range replies {
			if e, ok := msg.(*nlmsg.ErrorMessage); ok {
				if err := e.Err(); err != nil {
					return err
				}
			}
			printMessage(msg)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}
