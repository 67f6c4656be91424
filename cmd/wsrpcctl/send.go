package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sonirico/wsrpc"
	"github.com/spf13/cobra"
)

func newSendCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send [batch|-]",
		Short: "Send a JSON message batch and print one reply per message",
		Long: `Send reads a batch such as [{"Ping":{"Id":0}}] from the argument, or from
stdin when it is "-" or missing. Every message is sent as its own request;
messages with Id 0 are given a fresh id. Replies are printed in request
order, one batch per line. Error replies are reported on stderr.`,
		Example: `  wsrpcctl send --url ws://127.0.0.1:12345 '[{"Ping":{"Id":0}}]'`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readBatch(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			codec := wsrpc.NewJSONCodec().AllowUnknown()
			msgs, err := codec.Decode(payload)
			if err != nil {
				return errors.Wrap(err, "invalid batch")
			}
			if len(msgs) == 0 {
				return errors.New("empty batch")
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			conn, err := a.connect(ctx, codec)
			if err != nil {
				return err
			}
			defer a.disconnect(conn)

			failed := 0
			for _, m := range msgs {
				reply, err := conn.Send(ctx, m)
				if se, ok := wsrpc.IsServerError(err); ok {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "request %d: %s\n", se.ID, se)
					continue
				}
				if err != nil {
					return errors.Wrapf(err, "request %d failed", m.ID())
				}

				bts, err := codec.Encode(reply)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			}

			if failed > 0 {
				return errors.Errorf("%d of %d requests failed", failed, len(msgs))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long, 0 waits forever")
	return cmd
}

func readBatch(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return []byte(args[0]), nil
	}

	bts, err := io.ReadAll(stdin)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read batch from stdin")
	}
	if strings.TrimSpace(string(bts)) == "" {
		return nil, errors.New("no batch given")
	}
	return bts, nil
}
