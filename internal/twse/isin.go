package twse

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
	"resty.dev/v3"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/ratelimit"
)

// DefaultISINURL is the TWSE ISIN code query page. strMode selects the board.
const DefaultISINURL = "https://isin.twse.com.tw/isin/C_public.jsp"

const (
	modeListed = "2" // TWSE
	modeOTC    = "4" // TPEx
)

// ISIN downloads the current listing registry from the TWSE ISIN pages.
// The pages are MS950 encoded HTML tables split into sections by security type.
type ISIN struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
	pageURL string
}

// NewISIN creates a lister for pageURL, defaulting to DefaultISINURL.
func NewISIN(client *resty.Client, limiter *ratelimit.Limiter, pageURL string) *ISIN {
	if pageURL == "" {
		pageURL = DefaultISINURL
	}
	return &ISIN{
		client:  client,
		limiter: limiter,
		pageURL: pageURL,
	}
}

// Registry fetches the TWSE and TPEx boards and merges them into one registry.
func (s *ISIN) Registry(ctx context.Context) (*Registry, error) {
	r := &Registry{codes: make(map[string]Code)}
	for _, mode := range []string{modeListed, modeOTC} {
		if err := s.fetch(ctx, mode, r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (s *ISIN) fetch(ctx context.Context, mode string, r *Registry) error {
	if err := s.limiter.Wait(ctx, ratelimit.APITWSE); err != nil {
		return err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("strMode", mode).
		Get(s.pageURL)
	if err != nil {
		return fmt.Errorf("failed to fetch ISIN page (strMode=%s): %w", mode, fetcher.ClassifyTransportError(err))
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("failed to fetch ISIN page (strMode=%s): %w", mode, fetcher.ClassifyHTTPError(resp.StatusCode()))
	}

	n, err := parseISIN(strings.NewReader(resp.String()), r)
	if err != nil {
		return fmt.Errorf("ISIN page (strMode=%s): %w", mode, err)
	}
	if n == 0 {
		return fmt.Errorf("ISIN page (strMode=%s) lists no securities", mode)
	}
	return nil
}

// parseISIN adds every security row of a Big5 page to r and returns how many
// it read. A single-cell row opens a section naming the type of the rows
// below it; data rows have seven cells, the first being code and name
// separated by an ideographic space.
func parseISIN(src io.Reader, r *Registry) (int, error) {
	doc, err := goquery.NewDocumentFromReader(transform.NewReader(src, traditionalchinese.Big5.NewDecoder()))
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}

	var section string
	n := 0
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		text := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}

		switch cells.Length() {
		case 1:
			section = text(0)
		case 7:
			code, name, ok := strings.Cut(text(0), "\u3000")
			if !ok {
				// column header row
				return
			}
			c := Code{
				Type:   section,
				Code:   strings.TrimSpace(code),
				Name:   strings.TrimSpace(name),
				ISIN:   text(1),
				Start:  text(2),
				Market: text(3),
				Group:  text(4),
				CFI:    text(5),
			}
			if c.Code == "" {
				return
			}
			r.codes[c.Code] = c
			n++
		}
	})
	return n, nil
}
