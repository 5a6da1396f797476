// Package control wires an optional NATS-driven pause/resume switch onto a
// running agent: the same operational lever the teacher's orchestrator
// exposes over HTTP, carried here over the message bus so any operator
// tool already on the bus can flip it without a direct HTTP dependency.
package control

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Pauser is the subset of agentcore.Agent the controller needs. Defined
// locally so this package never imports agentcore just to name a type.
type Pauser interface {
	Pause()
	Resume()
}

// Controller subscribes to "{subject}.pause" and "{subject}.resume" and
// toggles the wrapped agent accordingly.
type Controller struct {
	conn *nats.Conn
	subs []*nats.Subscription
	log  zerolog.Logger
}

// Connect dials url and subscribes to subject's pause/resume commands on
// behalf of agent. Callers should only invoke this when NATS control is
// enabled in configuration; there is no nil-safe no-op variant because the
// decision to wire it at all belongs to the caller.
func Connect(url, subject string, agent Pauser, log zerolog.Logger) (*Controller, error) {
	nc, err := nats.Connect(
		url,
		nats.Name("tradingagent-control"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats control connection disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats control connection reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	c := &Controller{conn: nc, log: log.With().Str("component", "control").Logger()}

	pauseSub, err := nc.Subscribe(subject+".pause", func(*nats.Msg) {
		agent.Pause()
		c.log.Info().Msg("agent paused via nats control")
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe pause: %w", err)
	}

	resumeSub, err := nc.Subscribe(subject+".resume", func(*nats.Msg) {
		agent.Resume()
		c.log.Info().Msg("agent resumed via nats control")
	})
	if err != nil {
		pauseSub.Unsubscribe()
		nc.Close()
		return nil, fmt.Errorf("subscribe resume: %w", err)
	}

	c.subs = []*nats.Subscription{pauseSub, resumeSub}
	return c, nil
}

// Close unsubscribes and drains the underlying NATS connection.
func (c *Controller) Close() {
	if c == nil || c.conn == nil {
		return
	}
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.conn.Close()
}
