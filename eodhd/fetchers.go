package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/tracker"
)

// This file contains functions to access the EODHD API.

// fetchRealTime returns the latest (15 minutes delayed) close of an EODHD code.
func fetchRealTime(ctx context.Context, client *http.Client, base, apiKey, code string) (float64, error) {
	// https://eodhd.com/api/real-time/AAPL.US?api_token=demo&fmt=json
	// {
	// 	"code": "AAPL.US",
	// 	"timestamp": 1710446400,
	// 	"gmtoffset": 0,
	// 	"open": 172.91,
	// 	"close": 173,
	// 	"previousClose": 171.13,
	// 	...
	// }
	// unknown or halted codes answer "NA" in place of numbers.
	addr := fmt.Sprintf("%s/real-time/%s?fmt=json&api_token=%s", base, url.PathEscape(code), url.QueryEscape(apiKey))
	var jobj any
	if err := jwget(ctx, client, addr, &jobj); err != nil {
		return 0, err
	}
	return number("$.close", jobj)
}

// fetchIntradayClose returns the close of the last 1 minute bar of an EODHD code.
func fetchIntradayClose(ctx context.Context, client *http.Client, base, apiKey, code string) (float64, error) {
	// https://eodhd.com/api/intraday/AAPL.US?interval=1m&api_token=demo&fmt=json
	// [
	// 	{"timestamp": 1710423000, "gmtoffset": 0, "datetime": "2024-03-14 13:30:00", "open": 172.91, "high": 173.1, "low": 172.5, "close": 172.77, "volume": 1263012},
	// 	...
	// ]
	addr := fmt.Sprintf("%s/intraday/%s?interval=1m&fmt=json&api_token=%s", base, url.PathEscape(code), url.QueryEscape(apiKey))
	type Info struct {
		Timestamp int64    `json:"timestamp"`
		Close     *float64 `json:"close"`
	}
	content := make([]Info, 0)
	if err := jwget(ctx, client, addr, &content); err != nil {
		return 0, err
	}
	for i := len(content) - 1; i >= 0; i-- {
		if content[i].Close != nil {
			return *content[i].Close, nil
		}
	}
	return 0, fmt.Errorf("%w: no intraday bar for %s", tracker.ErrNoData, code)
}

// fetchFundamentals returns the descriptive data of an EODHD code.
func fetchFundamentals(ctx context.Context, client *http.Client, base, apiKey, code string) (tracker.Fundamentals, error) {
	// https://eodhd.com/api/fundamentals/AAPL.US?api_token=demo
	// {
	// 	"General": {"Code": "AAPL", "Type": "Common Stock", "CurrencyCode": "USD", "Sector": "Technology", ...},
	// 	"Highlights": {"MarketCapitalization": 2641997152256, ...},
	// 	...
	// }
	// the filter keeps the response small.
	addr := fmt.Sprintf("%s/fundamentals/%s?filter=General,Highlights&api_token=%s", base, url.PathEscape(code), url.QueryEscape(apiKey))
	var jobj any
	if err := jwget(ctx, client, addr, &jobj); err != nil {
		return tracker.Fundamentals{}, err
	}
	if m, ok := jobj.(map[string]any); !ok || len(m) == 0 {
		return tracker.Fundamentals{}, fmt.Errorf("%w: no fundamentals for %s", tracker.ErrNoData, code)
	}

	var f tracker.Fundamentals
	if v, err := jsonpath.Get("$.General.Sector", jobj); err == nil {
		f.Sector, _ = v.(string)
	}
	if v, err := jsonpath.Get("$.General.CurrencyCode", jobj); err == nil {
		if s, ok := v.(string); ok {
			f.Currency = strings.ToUpper(s)
		}
	}
	f.MarketCap, _ = number("$.Highlights.MarketCapitalization", jobj)
	return f, nil
}
