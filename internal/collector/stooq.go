package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StooqProvider implements Provider using the stooq.com daily CSV download.
type StooqProvider struct {
	BaseURL string
	Suffix  string // market suffix appended to bare tickers, e.g. ".us"
	Client  *http.Client
}

// NewStooqProvider creates a stooq provider with optional proxy support.
func NewStooqProvider(baseURL, proxyURL string) *StooqProvider {
	if baseURL == "" {
		baseURL = "https://stooq.com"
	}
	return &StooqProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Suffix:  ".us",
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *StooqProvider) Name() string { return "stooq" }

func (f *StooqProvider) ticker(symbol string) string {
	s := strings.ToLower(symbol)
	if strings.ContainsAny(s, ".^") {
		return s
	}
	return s + f.Suffix
}

func (f *StooqProvider) FetchHistory(ctx context.Context, symbol, start, end string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/q/d/l/?s=%s&d1=%s&d2=%s&i=d",
		f.BaseURL, url.QueryEscape(f.ticker(symbol)), start, end)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stooq fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stooq: status %d, body: %s", resp.StatusCode, string(body))
	}

	r := csv.NewReader(resp.Body)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("stooq decode: %w", err)
	}
	if len(records) < 2 || !strings.EqualFold(records[0][0], "Date") {
		return nil, fmt.Errorf("stooq: no data returned for %s", symbol)
	}

	// The CSV is oldest first with a header row.
	rows := make([][]string, 0, len(records)-1)
	for i := len(records) - 1; i >= 1; i-- {
		rec := records[i]
		if len(rec) < 5 {
			return nil, fmt.Errorf("stooq: short row %v", rec)
		}
		volume := "0"
		if len(rec) > 5 && rec[5] != "" {
			volume = rec[5]
		}
		rows = append(rows, []string{rec[0], rec[1], rec[2], rec[3], rec[4], volume})
	}
	return rows, nil
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
