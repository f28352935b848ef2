// Package preflight probes DNS resolution and TCP reachability of the
// pipeline's upstream endpoints. It is optional and never part of a run.
package preflight

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"opensky-ingest/pkg/logger"
)

// DefaultTargets are the OpenSky API and identity hosts.
var DefaultTargets = []string{
	"opensky-network.org:443",
	"auth.opensky-network.org:443",
}

// Result is the outcome of probing one host:port target.
type Result struct {
	Target    string        `json:"target"`
	Addresses []string      `json:"addresses,omitempty"`
	Latency   time.Duration `json:"latency"`
	Err       string        `json:"error,omitempty"`
}

func (r Result) OK() bool { return r.Err == "" }

// Resolver looks up host addresses.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Checker runs the probes.
type Checker struct {
	resolver Resolver
	dialer   *net.Dialer
	timeout  time.Duration
	logger   *logger.Logger
}

func NewChecker(timeout time.Duration, log *logger.Logger) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{Timeout: timeout},
		timeout:  timeout,
		logger:   log.WithComponent("preflight"),
	}
}

// WithResolver replaces the DNS resolver.
func (c *Checker) WithResolver(r Resolver) *Checker {
	c.resolver = r
	return c
}

// Run probes every target concurrently and returns results in input order.
func (c *Checker) Run(ctx context.Context, targets []string) []Result {
	results := make([]Result, len(targets))
	var g errgroup.Group
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = c.probe(ctx, target)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Healthy reports whether every result succeeded.
func Healthy(results []Result) bool {
	for _, r := range results {
		if !r.OK() {
			return false
		}
	}
	return true
}

func (c *Checker) probe(ctx context.Context, target string) Result {
	res := Result{Target: target}
	start := time.Now()

	host, port, err := net.SplitHostPort(target)
	if err != nil {
		res.Err = fmt.Sprintf("invalid target: %v", err)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		res.Err = fmt.Sprintf("dns: %v", err)
		c.logger.Error("DNS resolution failed", logger.Fields("target", target, logger.FieldError, err.Error()))
		return res
	}
	if len(addrs) == 0 {
		res.Err = "dns: no addresses"
		c.logger.Error("DNS resolution returned no addresses", logger.Fields("target", target))
		return res
	}
	res.Addresses = addrs

	conn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(addrs[0], port))
	if err != nil {
		res.Err = fmt.Sprintf("tcp: %v", err)
		c.logger.Error("TCP connect failed", logger.Fields("target", target, "address", addrs[0], logger.FieldError, err.Error()))
		return res
	}
	_ = conn.Close()

	res.Latency = time.Since(start)
	c.logger.Info("Endpoint reachable", logger.Fields(
		"target", target,
		"addresses", addrs,
		logger.FieldDuration, res.Latency.Milliseconds(),
	))
	return res
}
