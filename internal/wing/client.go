// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single fetch when none is configured.
	DefaultTimeout = 250 * time.Millisecond

	// Wing controllers answer with a short angle string; anything longer
	// is truncated rather than buffered.
	maxBodyBytes = 4096
	maxRedirects = 50
	userAgent    = "sail-logger/1.0"
)

// Reading is the verbatim trimmed payload of a wing sensor, or nothing.
// Unlike gps.Fix, a failed fetch is not replaced by the previous value.
type Reading struct {
	Text      string `json:"text"`
	Available bool   `json:"available"`
}

// Value wraps a successful payload.
func Value(text string) Reading {
	return Reading{Text: text, Available: true}
}

// Unavailable is the reading of a failed fetch.
func Unavailable() Reading {
	return Reading{}
}

// Client polls one wing sensor endpoint.
type Client struct {
	name     string
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

// NewClient returns a client for the given endpoint. A non-positive timeout
// selects DefaultTimeout. Endpoints given as a bare host get an http://
// scheme, matching how the wing controllers are addressed on the boat LAN.
func NewClient(name, endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	return &Client{
		name:     name,
		endpoint: endpoint,
		timeout:  timeout,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// Name returns the sensor label ("fore", "mizzen").
func (c *Client) Name() string { return c.name }

// Endpoint returns the normalized URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Fetch performs one bounded GET. Any failure yields Unavailable; the
// cause is available through FetchErr for callers that want to log it.
func (c *Client) Fetch() Reading {
	r, _ := c.FetchErr()
	return r
}

// FetchErr is Fetch with the failure cause. The request is never retried.
func (c *Client) FetchErr() (Reading, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return Unavailable(), fmt.Errorf("%s wing: build request: %w", c.name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Unavailable(), fmt.Errorf("%s wing: timed out after %s: %w", c.name, c.timeout, err)
		}
		return Unavailable(), fmt.Errorf("%s wing: request: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Unavailable(), fmt.Errorf("%s wing: http status %d", c.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return Unavailable(), fmt.Errorf("%s wing: read body: %w", c.name, err)
	}
	// A sensor answers with one short angle; anything longer is not a reading.
	if len(body) > maxBodyBytes {
		return Unavailable(), fmt.Errorf("%s wing: body exceeds %d bytes", c.name, maxBodyBytes)
	}

	return Value(strings.TrimSpace(string(body))), nil
}
