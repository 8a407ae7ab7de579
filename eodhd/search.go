package eodhd

import (
	"context"
	"fmt"
	"net/url"
)

// SearchResult matches the structure of a single item in the EODHD search API response.
type SearchResult struct {
	Code          string  `json:"Code"`
	Exchange      string  `json:"Exchange"`
	Name          string  `json:"Name"`
	Type          string  `json:"Type"`
	Country       string  `json:"Country"`
	Currency      string  `json:"Currency"`
	ISIN          string  `json:"ISIN"`
	PreviousClose float64 `json:"previousClose"`
}

// Ticker returns the ticker to add a holding with: the bare code for US
// listings, CODE.EXCHANGE otherwise.
func (r SearchResult) Ticker() string {
	if r.Exchange == "US" || r.Exchange == "" {
		return r.Code
	}
	return r.Code + "." + r.Exchange
}

// Search searches for securities by name, ticker or ISIN.
func (c *Client) Search(ctx context.Context, searchTerm string) ([]SearchResult, error) {
	addr := fmt.Sprintf("%s/search/%s?api_token=%s&fmt=json", c.baseURL, url.PathEscape(searchTerm), url.QueryEscape(c.apiKey))

	var results []SearchResult
	if err := jwget(ctx, c.daily, addr, &results); err != nil {
		return nil, err
	}
	return results, nil
}
