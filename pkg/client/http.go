// Package client holds the HTTP clients for the quote aggregator, the block
// explorer and the intent service.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"intent-swap/pkg/types"
)

const defaultTimeout = 15 * time.Second

// httpClient is a GET-only JSON client for one upstream service. Requests go
// through a circuit breaker that only trips on transport errors and 5xx
// responses.
type httpClient struct {
	service string
	baseURL string
	headers map[string]string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

type rawResponse struct {
	status int
	body   []byte
}

func newHTTPClient(service, baseURL string, hc *http.Client, log logrus.FieldLogger) *httpClient {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", service)

	return &httpClient{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: map[string]string{},
		http:    hc,
		breaker: newCircuitBreaker(service, log),
		log:     log,
	}
}

func newCircuitBreaker(name string, log logrus.FieldLogger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warnf("%s seems down, stop allowing requests", name)
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				log.Infof("checking %s status", name)
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				log.Infof("%s seems ok, restart allowing requests", name)
			}
		},
	})
}

func (c *httpClient) get(ctx context.Context, path string, query url.Values) (*rawResponse, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		raw := &rawResponse{status: resp.StatusCode, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return raw, c.apiError(raw)
		}
		// 4xx is the caller's fault and must not trip the breaker
		return raw, nil
	})
	if err != nil {
		if types.IsAPI(err) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s unavailable: %w", c.service, err)
		}
		return nil, fmt.Errorf("%s request failed: %w", c.service, err)
	}

	raw := out.(*rawResponse)
	if raw.status < 200 || raw.status >= 300 {
		return nil, c.apiError(raw)
	}
	return raw, nil
}

// getJSON performs a GET and decodes the body into T
func getJSON[T any](ctx context.Context, c *httpClient, path string, query url.Values) (*T, error) {
	raw, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(raw.body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", c.service, err)
	}
	return &out, nil
}

// apiError extracts the upstream message from an error body
func (c *httpClient) apiError(raw *rawResponse) *types.APIError {
	var body struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	msg := ""
	if err := json.Unmarshal(raw.body, &body); err == nil {
		switch {
		case body.Reason != "":
			msg = body.Reason
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
	}

	return &types.APIError{
		Service:    c.service,
		StatusCode: raw.status,
		Message:    msg,
		Body:       string(raw.body),
	}
}
