package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
)

// Readiness modes. Poll checks a real readiness signal; delay reproduces
// the historical fixed sleep for servers without a usable endpoint.
const (
	ReadyModePoll  = "poll"
	ReadyModeDelay = "delay"
)

// defaultCoreNode is the node class whose presence in /object_info marks
// the server as actually able to run workflows, not merely listening.
const defaultCoreNode = "VAELoader"

// waitReady blocks until the inference server is ready, the server dies,
// the context is canceled, or the configured wait is exhausted.
func (s *Supervisor) waitReady(ctx context.Context, serverDone <-chan error) error {
	start := time.Now()
	defer func() { readinessWait.Observe(time.Since(start).Seconds()) }()

	if s.cfg.ReadyMode == ReadyModeDelay {
		select {
		case <-time.After(s.cfg.ReadyDelay):
			return nil
		case err := <-serverDone:
			return serverExitedError{err: err, tail: s.stderrTail()}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.PollInterval
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = s.cfg.ReadyTimeout
	op := func() error {
		select {
		case err := <-serverDone:
			return backoff.Permanent(serverExitedError{err: err, tail: s.stderrTail()})
		default:
		}
		return s.probe(ctx)
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if IsServerExited(err) || ctx.Err() != nil {
			return err
		}
		return startupTimeoutError{baseURL: s.cfg.BaseURL, wait: s.cfg.ReadyTimeout}
	}
	return nil
}

// probe asks the server's object catalog endpoint whether core nodes are
// registered yet. HTTP 200 alone is not enough: early in startup the
// endpoint can answer before node registration finishes.
func (s *Supervisor) probe(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(pctx, http.MethodGet, s.cfg.BaseURL+"/object_info", nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("object_info status %d", resp.StatusCode)
	}
	node := s.cfg.CoreNode
	if node == "" {
		node = defaultCoreNode
	}
	var info map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("object_info decode: %w", err)
	}
	if _, ok := info[node]; !ok {
		return fmt.Errorf("object_info up but %s not registered yet", node)
	}
	return nil
}
