package wikipedia

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/ratelimit"
)

// DefaultSP500URL is the constituents page scraped for the US universe.
const DefaultSP500URL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// SP500 lists S&P 500 tickers by scraping the Wikipedia constituents table.
type SP500 struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
	pageURL string
}

// NewSP500 creates a scraper for pageURL using client.
func NewSP500(client *resty.Client, limiter *ratelimit.Limiter, pageURL string) *SP500 {
	if pageURL == "" {
		pageURL = DefaultSP500URL
	}
	return &SP500{
		client:  client,
		limiter: limiter,
		pageURL: pageURL,
	}
}

// Tickers returns the constituent symbols in Yahoo notation (BRK.B -> BRK-B),
// sorted and deduplicated.
func (s *SP500) Tickers(ctx context.Context) ([]string, error) {
	if err := s.limiter.Wait(ctx, ratelimit.APIWikipedia); err != nil {
		return nil, err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		Get(s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch S&P 500 page: %w", fetcher.ClassifyTransportError(err))
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch S&P 500 page: %w", fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	return parseConstituents(resp.String())
}

func parseConstituents(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse S&P 500 page: %w", err)
	}

	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("constituents table not found")
	}

	col := symbolColumn(table)

	seen := make(map[string]struct{})
	var tickers []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= col {
			return
		}
		sym := strings.TrimSpace(cells.Eq(col).Text())
		if sym == "" {
			return
		}
		sym = strings.ReplaceAll(sym, ".", "-")
		if _, dup := seen[sym]; dup {
			return
		}
		seen[sym] = struct{}{}
		tickers = append(tickers, sym)
	})

	if len(tickers) == 0 {
		return nil, fmt.Errorf("constituents table has no symbols")
	}

	sort.Strings(tickers)
	return tickers, nil
}

// symbolColumn finds the "Symbol" header index, defaulting to the first column.
func symbolColumn(table *goquery.Selection) int {
	col := 0
	table.Find("tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(th.Text()), "Symbol") {
			col = i
			return false
		}
		return true
	})
	return col
}
