package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/skulwise/skulwise/internal/logging"
)

// DefaultProbeInterval is used when a Prober is built with a zero interval.
const DefaultProbeInterval = 15 * time.Second

// Prober periodically checks that a URL answers and drives a Signal.
// Any HTTP response below 500 counts as reachable; transport errors and
// 5xx count as offline.
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
	signal   *Signal
	logger   *slog.Logger
}

// NewProber builds a Prober for url that updates signal.
func NewProber(url string, interval time.Duration, signal *Signal, logger *slog.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	timeout := interval / 2
	if timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &Prober{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		signal:   signal,
		logger:   logging.NewComponentLogger(logger, "connectivity"),
	}
}

// Check probes once and updates the signal.
func (p *Prober) Check(ctx context.Context) bool {
	err := p.probe(ctx)
	online := err == nil
	if p.signal.Set(online) {
		if online {
			p.logger.Info("remote reachable")
		} else {
			p.logger.Warn("remote unreachable", logging.Error(err))
		}
	}
	return online
}

// Run probes immediately and then every interval until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("probe %s: status %d", p.url, resp.StatusCode)
	}
	return nil
}
