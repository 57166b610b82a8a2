package finmind

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/ratelimit"
)

// DefaultBaseURL is the FinMind v4 REST endpoint.
const DefaultBaseURL = "https://api.finmindtrade.com/api/v4"

const (
	datasetPER          = "TaiwanStockPER"
	datasetMonthRevenue = "TaiwanStockMonthRevenue"

	perLookbackDays = 90
	// 13 monthly rows are needed for a year-over-year comparison; 15 months
	// of history leaves room for a late filing.
	revenueLookbackMonths = 15
	revenueYoYOffset      = 12
)

// NameLookup resolves a TW security code to its short name.
type NameLookup interface {
	Name(code string) string
}

// Provider fetches Taiwan equity fundamentals from FinMind.
type Provider struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
	names   NameLookup
	now     func() time.Time
}

// NewProvider creates a Provider. token may be empty for anonymous access.
func NewProvider(client *resty.Client, limiter *ratelimit.Limiter, names NameLookup, token string) *Provider {
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Provider{
		client:  client,
		limiter: limiter,
		names:   names,
		now:     time.Now,
	}
}

// FetchFundamentals combines the latest PER/PBR/yield row with the
// year-over-year change in monthly revenue.
func (p *Provider) FetchFundamentals(ctx context.Context, stockID string) (*fetcher.Fundamentals, error) {
	now := p.now()

	name := ""
	if p.names != nil {
		name = p.names.Name(stockID)
	}
	f := fetcher.NewFundamentals(name)

	perRows, err := p.dataset(ctx, datasetPER, stockID, now.AddDate(0, 0, -perLookbackDays))
	if err != nil {
		return nil, err
	}
	if n := len(perRows); n > 0 {
		latest := perRows[n-1]
		setNumber(f, fetcher.MetricPE, latest.Get("PER"))
		setNumber(f, fetcher.MetricPB, latest.Get("PBR"))
		setNumber(f, fetcher.MetricDividendYield, latest.Get("dividend_yield"))
	}

	revRows, err := p.dataset(ctx, datasetMonthRevenue, stockID, now.AddDate(0, -revenueLookbackMonths, 0))
	if err != nil {
		return nil, err
	}
	if growth, ok := revenueGrowth(revRows); ok {
		f.Set(fetcher.MetricRevenueGrowth, growth)
	}

	if len(perRows) == 0 && len(revRows) == 0 {
		return nil, fetcher.NewNotFoundError(stockID)
	}
	return f, nil
}

// dataset fetches one FinMind dataset for stockID and returns its rows in
// ascending date order.
func (p *Provider) dataset(ctx context.Context, dataset, stockID string, start time.Time) ([]gjson.Result, error) {
	if err := p.limiter.Wait(ctx, ratelimit.APIFinMind); err != nil {
		return nil, fetcher.ClassifyTransportError(err)
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"dataset":    dataset,
			"data_id":    stockID,
			"start_date": start.Format("2006-01-02"),
		}).
		Get("/data")
	if err != nil {
		return nil, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	body := resp.String()
	if !gjson.Valid(body) {
		return nil, fetcher.NewValidationError(fmt.Sprintf("%s: invalid JSON for %s", dataset, stockID))
	}

	// FinMind reports quota and auth problems in the body with HTTP 200.
	if status := gjson.Get(body, "status"); status.Exists() && status.Int() != 200 {
		fe := fetcher.ClassifyHTTPError(int(status.Int()))
		if msg := gjson.Get(body, "msg").String(); msg != "" {
			fe.Message = msg
		}
		return nil, fe
	}

	data := gjson.Get(body, "data")
	if !data.IsArray() {
		return nil, fetcher.NewValidationError(fmt.Sprintf("%s: data not found in response for %s", dataset, stockID))
	}

	rows := data.Array()
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Get("date").String() < rows[j].Get("date").String()
	})
	return rows, nil
}

func setNumber(f *fetcher.Fundamentals, m fetcher.Metric, v gjson.Result) {
	if v.Type == gjson.Number {
		f.Set(m, v.Float())
	}
}

// revenueGrowth compares the newest month with the same month a year earlier,
// rounded to two decimal places. rows must be sorted by date.
func revenueGrowth(rows []gjson.Result) (float64, bool) {
	if len(rows) < revenueYoYOffset+1 {
		return 0, false
	}
	latest := rows[len(rows)-1].Get("revenue")
	prev := rows[len(rows)-1-revenueYoYOffset].Get("revenue")
	if latest.Type != gjson.Number || prev.Type != gjson.Number {
		return 0, false
	}

	l := decimal.NewFromFloat(latest.Float())
	p := decimal.NewFromFloat(prev.Float())
	if !p.IsPositive() {
		return 0, false
	}

	growth := l.Sub(p).Div(p).Mul(decimal.NewFromInt(100)).Round(2)
	return growth.InexactFloat64(), true
}
