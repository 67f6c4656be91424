package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sonirico/wsrpc"
	"github.com/spf13/cobra"
)

const defaultDisconnectTimeout = 5 * time.Second

// app is the state shared by every subcommand, filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfgFile   string
	url       string
	transport string
	logLevel  string
	headers   []string

	cfg    *Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "wsrpcctl",
		Short: "Send requests to and listen on a websocket request/response server",
		Long: `wsrpcctl opens one websocket to a server speaking JSON message batches,
sends requests tagged with ids and matches each reply to its request.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.wsrpc/config.yaml)")
	flags.StringVar(&a.url, "url", "", "server url, ws:// or wss://")
	flags.StringVar(&a.transport, "transport", "", "websocket implementation: fasthttp or coder")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringArrayVarP(&a.headers, "header", "H", nil, "extra handshake header \"Key: Value\", repeatable")

	root.AddCommand(newSendCmd(a))
	root.AddCommand(newListenCmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	path := a.cfgFile
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL = a.url
	}
	if flags.Changed("transport") {
		cfg.Transport = a.transport
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.SetHeaders(a.headers); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	a.logger = logrus.New()
	a.logger.SetOutput(cmd.ErrOrStderr())
	a.logger.SetLevel(level)
	a.cfg = cfg
	return nil
}

// connect dials the configured server. Extra options go after the ones
// derived from the config.
func (a *app) connect(ctx context.Context, codec wsrpc.Codec, extra ...wsrpc.Option) (*wsrpc.Connector, error) {
	logger := wsrpc.NewLogrusLogger(a.logger)

	var transport wsrpc.Transport
	switch a.cfg.Transport {
	case transportCoder:
		transport = wsrpc.NewCoderTransport(logger, nil, wsrpc.ErrorAdapters{})
	default:
		transport = wsrpc.NewWebsocketTransport(logger, nil, wsrpc.ErrorAdapters{}).
			WithWriteTimeout(a.cfg.WriteTimeout)
	}

	opts := []wsrpc.Option{
		wsrpc.WithLogger(logger),
		wsrpc.WithCodec(codec),
		wsrpc.WithTransport(transport),
		wsrpc.WithQueueSize(a.cfg.QueueSize),
	}
	if a.cfg.PingInterval > 0 {
		opts = append(opts, wsrpc.WithKeepAlive(a.cfg.PingInterval, nil))
	}
	opts = append(opts, extra...)

	c := wsrpc.NewConnector(
		wsrpc.NewOpenConnectionParamsRepo(logger, wsrpc.StaticOpenConnectionParams(a.cfg.ParsedURL(), a.cfg.HTTPHeader())),
		opts...,
	)

	dialCtx := ctx
	if a.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, a.cfg.DialTimeout)
		defer cancel()
	}
	if err := c.Connect(dialCtx); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *app) disconnect(c *wsrpc.Connector) {
	timeout := a.cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultDisconnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.Disconnect(ctx); err != nil {
		a.logger.Warnf("disconnect: %s", err)
	}
}
