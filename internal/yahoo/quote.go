package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/ratelimit"
)

// DefaultBaseURL is the public Yahoo Finance API host.
const DefaultBaseURL = "https://query2.finance.yahoo.com"

const quoteSummaryModules = "price,summaryDetail,defaultKeyStatistics,financialData"

// field maps a quoteSummary JSON path onto a metric. Yahoo reports ratios such
// as ROE and yield as fractions; scale converts them to percent.
type field struct {
	metric fetcher.Metric
	path   string
	scale  float64
}

var fields = []field{
	{fetcher.MetricPE, "summaryDetail.trailingPE.raw", 1},
	{fetcher.MetricForwardPE, "summaryDetail.forwardPE.raw", 1},
	{fetcher.MetricPB, "defaultKeyStatistics.priceToBook.raw", 1},
	{fetcher.MetricROE, "financialData.returnOnEquity.raw", 100},
	{fetcher.MetricDividendYield, "summaryDetail.dividendYield.raw", 100},
	{fetcher.MetricRevenueGrowth, "financialData.revenueGrowth.raw", 100},
	{fetcher.MetricMarketCap, "price.marketCap.raw", 1},
}

// Provider fetches US equity fundamentals from the quoteSummary endpoint.
// quoteSummary only answers requests carrying a session cookie and the crumb
// issued for it; both are obtained lazily and shared by every fetch.
type Provider struct {
	client    *resty.Client
	limiter   *ratelimit.Limiter
	cookieURL string

	mu           sync.Mutex
	currentCrumb string
}

// NewProvider creates a Provider backed by client. The client's base URL
// must point at the API host (see DefaultBaseURL); cookieURL defaults to
// DefaultCookieURL. client gets a cookie jar for the session cookie.
func NewProvider(client *resty.Client, limiter *ratelimit.Limiter, cookieURL string) *Provider {
	if cookieURL == "" {
		cookieURL = DefaultCookieURL
	}
	jar, _ := cookiejar.New(nil)
	client.SetCookieJar(jar)

	return &Provider{
		client:    client,
		limiter:   limiter,
		cookieURL: cookieURL,
	}
}

// FetchFundamentals retrieves the current fundamentals snapshot for ticker.
// A 401 is taken as an expired crumb: the session is renewed once and the
// request repeated.
func (p *Provider) FetchFundamentals(ctx context.Context, ticker string) (*fetcher.Fundamentals, error) {
	resp, crumb, err := p.quoteSummary(ctx, ticker)
	if err == nil && resp.StatusCode() == http.StatusUnauthorized {
		p.invalidate(crumb)
		resp, _, err = p.quoteSummary(ctx, ticker)
	}
	if err != nil {
		return nil, err
	}

	body := resp.String()
	if summaryErr := gjson.Get(body, "quoteSummary.error"); summaryErr.Exists() && summaryErr.Type != gjson.Null {
		return nil, summaryError(ticker, summaryErr)
	}

	if !resp.IsSuccess() {
		fe := fetcher.ClassifyHTTPError(resp.StatusCode())
		if desc := gjson.Get(body, "finance.error.description").String(); desc != "" {
			fe.Message = desc
		}
		return nil, fe
	}

	return parseQuoteSummary(ticker, body)
}

func (p *Provider) quoteSummary(ctx context.Context, ticker string) (*resty.Response, string, error) {
	if err := p.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return nil, "", fetcher.ClassifyTransportError(err)
	}

	crumb, err := p.crumb(ctx)
	if err != nil {
		return nil, "", err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"modules": quoteSummaryModules,
			"crumb":   crumb,
		}).
		Get("/v10/finance/quoteSummary/" + url.PathEscape(ticker))
	if err != nil {
		return nil, crumb, fetcher.ClassifyTransportError(err)
	}
	return resp, crumb, nil
}

func summaryError(ticker string, e gjson.Result) *fetcher.FetchError {
	code := e.Get("code").String()
	desc := e.Get("description").String()
	if strings.EqualFold(code, "Not Found") {
		fe := fetcher.NewNotFoundError(ticker)
		if desc != "" {
			fe.Message = desc
		}
		return fe
	}
	return fetcher.NewValidationError(fmt.Sprintf("quoteSummary error for %s: %s %s", ticker, code, desc))
}

func parseQuoteSummary(ticker, body string) (*fetcher.Fundamentals, error) {
	result := gjson.Get(body, "quoteSummary.result.0")
	if !result.Exists() || !result.IsObject() {
		return nil, fetcher.NewValidationError(fmt.Sprintf("quote summary not found in response for %s", ticker))
	}

	f := fetcher.NewFundamentals(result.Get("price.shortName").String())
	for _, fd := range fields {
		v := result.Get(fd.path)
		if v.Type != gjson.Number {
			continue
		}
		f.Set(fd.metric, v.Float()*fd.scale)
	}
	return f, nil
}
