package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/moveoracle/api"
)

// Main answers requests on subject until ctx is done, then drains the
// subscription so in-flight requests still get their reply.
func Main(ctx context.Context, nc *nats.Conn, subject string, svc *Service) error {
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		log.Debug().Msgf("RECV: %d bytes", len(m.Data))
		if err := m.Respond(svc.HandleBytes(ctx, m.Data)); err != nil {
			log.Err(err).Msg("respond-failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Msgf("Listening on [%s]", subject)

	<-ctx.Done()
	return sub.Drain()
}

// DefaultRequestTimeout covers the race ceiling plus the heuristic fallback.
const DefaultRequestTimeout = 15 * time.Second

type Client struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

func NewClient(nc *nats.Conn, subject string) *Client {
	return &Client{nc: nc, subject: subject, timeout: DefaultRequestTimeout}
}

// Analyze sends req to the bot and waits for its response. A response that
// carries an error code is returned as is, not as a Go error.
func (c *Client) Analyze(ctx context.Context, req api.Request) (*api.Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.nc.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		if c.nc.LastError() != nil {
			log.Error().Msgf("%v for request", c.nc.LastError())
		}
		return nil, err
	}
	log.Debug().Msgf("res: %v", string(res.Data))
	resp := &api.Response{}
	if err := json.Unmarshal(res.Data, resp); err != nil {
		return nil, err
	}
	if resp.Result == nil && resp.Consensus == nil && resp.Code == "" {
		return nil, errors.New("bot returned an empty response")
	}
	return resp, nil
}
