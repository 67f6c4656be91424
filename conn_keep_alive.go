package wsrpc

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// keepAlive sends a keep-alive request on conn every interval until conn
// starts closing. Servers that expect periodic pings drop clients that stop
// sending them.
func (c *Connector) keepAlive(conn *connection) {
	interval := c.opts.keepAliveInterval
	logger := conn.logger.WithField("subtype", "keep_alive")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.closing:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			_, err := c.sendOn(ctx, conn, c.opts.keepAliveFactory())
			cancel()

			switch {
			case err == nil:
			case errors.Is(err, ErrConnectionClosed):
				return
			default:
				logger.Warnf("keep-alive request failed: %s", err)
			}
		}
	}
}
