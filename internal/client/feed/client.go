// Package feed is the REST client for the upstream price oracle.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Quote is one instrument quote as published by the oracle.
type Quote struct {
	Reference string          `json:"reference"`
	Price     decimal.Decimal `json:"price"`
	QuotedAt  time.Time       `json:"quoted_at"`
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second)
	return &Client{http: c}
}

// Quotes pulls the full quote list. References filters when non-empty.
func (c *Client) Quotes(ctx context.Context, references []string) ([]Quote, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
	if len(references) > 0 {
		req.SetQueryParam("references", strings.Join(references, ","))
	}

	var out struct {
		Quotes []Quote `json:"quotes"`
	}
	resp, err := req.SetResult(&out).Get("/quotes")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed quotes: status %d", resp.StatusCode())
	}
	return out.Quotes, nil
}
