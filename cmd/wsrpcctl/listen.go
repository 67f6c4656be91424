package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/sonirico/wsrpc"
	"github.com/spf13/cobra"
)

func newListenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print unsolicited messages until interrupted or disconnected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := wsrpc.NewJSONCodec().AllowUnknown()
			out := &lockedWriter{w: cmd.OutOrStdout()}
			disconnected := make(chan error, 1)

			conn, err := a.connect(cmd.Context(), codec,
				wsrpc.WithMessageHandler(func(m wsrpc.Message) {
					bts, err := codec.Encode(m)
					if err != nil {
						a.logger.Warnf("cannot print %T: %s", m, err)
						return
					}
					out.println(string(bts))
				}),
				wsrpc.WithInvalidMessageHandler(func(err error) {
					a.logger.Warnf("invalid message: %s", err)
				}),
				wsrpc.WithDisconnectHandler(func(err error) {
					disconnected <- err
				}),
			)
			if err != nil {
				return err
			}

			select {
			case err := <-disconnected:
				if err == wsrpc.ErrConnectionClosed {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				a.disconnect(conn)
				return nil
			}
		},
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) println(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}
