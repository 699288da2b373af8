package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// YahooProvider implements Provider using the Yahoo Finance chart API.
type YahooProvider struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooProvider creates a Yahoo Finance provider with optional proxy support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	return &YahooProvider{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooProvider) Name() string { return "yahoo" }

func (f *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// at returns values[i] and false when it is missing or null.
func at(values []interface{}, i int) (float64, bool) {
	if i >= len(values) {
		return 0, false
	}
	switch n := values[i].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// orClose fills a missing open/high/low with the bar's close.
func orClose(v float64, ok bool, c float64) float64 {
	if !ok {
		return c
	}
	return v
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (f *YahooProvider) FetchHistory(ctx context.Context, symbol, start, end string) ([][]string, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("yahoo: bad start date %q: %w", start, err)
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("yahoo: bad end date %q: %w", end, err)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), from.Unix(), to.AddDate(0, 0, 1).Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	rows := make([][]string, 0, len(result.Timestamp))

	// Walk backwards so rows come out newest first.
	for i := len(result.Timestamp) - 1; i >= 0; i-- {
		c, ok := at(quote.Close, i)
		if !ok {
			continue // no close: holiday or unsettled bar
		}
		o, oOK := at(quote.Open, i)
		h, hOK := at(quote.High, i)
		l, lOK := at(quote.Low, i)
		vol, _ := at(quote.Volume, i)
		rows = append(rows, []string{
			time.Unix(result.Timestamp[i], 0).UTC().Format("2006-01-02"),
			formatFloat(orClose(o, oOK, c)), formatFloat(orClose(h, hOK, c)), formatFloat(orClose(l, lOK, c)),
			formatFloat(c), formatFloat(vol),
		})
	}
	return rows, nil
}
