package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"intent-swap/pkg/intent"
)

// MinIntentConfidence is the confidence an intent must exceed to be kept
const MinIntentConfidence = 0.95

// Wit is a client for the wit.ai message API
type Wit struct {
	c *httpClient
}

type witResponse struct {
	Text    string `json:"text"`
	Intents []struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"intents"`
	Entities map[string][]witEntity `json:"entities"`
}

type witEntity struct {
	Name       string          `json:"name"`
	Role       string          `json:"role"`
	Confidence float64         `json:"confidence"`
	Value      json.RawMessage `json:"value"`
}

// NewWit creates an intent service client authenticated with token
func NewWit(baseURL, token string, hc *http.Client, log logrus.FieldLogger) *Wit {
	c := newHTTPClient("wit", baseURL, hc, log)
	if token != "" {
		c.headers["Authorization"] = "Bearer " + token
	}
	return &Wit{c: c}
}

// Intents classifies query. Queries with fewer than three entities yield no
// results, and only intents above MinIntentConfidence are returned.
func (w *Wit) Intents(ctx context.Context, query string) ([]intent.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("q", query)

	resp, err := getJSON[witResponse](ctx, w.c, "", q)
	if err != nil {
		return nil, err
	}
	if len(resp.Entities) < intent.MinEntities {
		w.c.log.WithField("entities", len(resp.Entities)).Debug("not enough entities")
		return nil, nil
	}

	entities := make(map[string]string, len(resp.Entities))
	for _, list := range resp.Entities {
		if len(list) == 0 {
			continue
		}
		entities[list[0].Name] = entityValue(list[0].Value)
	}

	var results []intent.Result
	for _, in := range resp.Intents {
		if in.Confidence <= MinIntentConfidence {
			continue
		}
		results = append(results, intent.Result{
			Name:       in.Name,
			Confidence: in.Confidence,
			Entities:   entities,
		})
	}
	return results, nil
}

// entityValue renders a string or numeric entity value
func entityValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
