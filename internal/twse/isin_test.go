package twse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/ratelimit"
)

type isinRow struct {
	code, name, group string
}

type isinSection struct {
	title string
	rows  []isinRow
}

// isinPage renders a C_public.jsp page for one board, Big5 encoded like the
// real site.
func isinPage(t *testing.T, market string, sections ...isinSection) []byte {
	t.Helper()

	var b strings.Builder
	b.WriteString(`<html><head><meta http-equiv="Content-Type" content="text/html; charset=MS950"></head><body>`)
	b.WriteString(`<table class='h4' align=center cellSpacing=3 cellPadding=2 width=750 border=0>`)
	b.WriteString(`<tr align=center><td bgcolor=#D5FFD5>有價證券代號及名稱 </td><td bgcolor=#D5FFD5>國際證券辨識號碼(ISIN Code)</td>` +
		`<td bgcolor=#D5FFD5>上市日</td><td bgcolor=#D5FFD5>市場別</td><td bgcolor=#D5FFD5>產業別</td>` +
		`<td bgcolor=#D5FFD5>CFICode</td><td bgcolor=#D5FFD5>備註</td></tr>`)
	for _, s := range sections {
		fmt.Fprintf(&b, `<tr><td bgcolor=#FAFAD2 colspan=7 ><B> %s <B> </td></tr>`, s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, `<tr><td bgcolor=#FAFAD2>%s　%s</td><td bgcolor=#FAFAD2>TW000%s0000</td>`+
				`<td bgcolor=#FAFAD2>2001/01/01</td><td bgcolor=#FAFAD2>%s</td><td bgcolor=#FAFAD2>%s</td>`+
				`<td bgcolor=#FAFAD2>ESVUFR</td><td bgcolor=#FAFAD2></td></tr>`, r.code, r.name, r.code, market, r.group)
		}
	}
	b.WriteString(`</table></body></html>`)

	page, err := traditionalchinese.Big5.NewEncoder().Bytes([]byte(b.String()))
	require.NoError(t, err)
	return page
}

// isinServer serves pages keyed by strMode. While down is set it answers 503.
func isinServer(t *testing.T, pages map[string][]byte, down *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Query().Get("strMode")]
		if !ok || (down != nil && down.Load()) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html;charset=MS950")
		w.Write(page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestISIN(url string) *ISIN {
	client := fetcher.NewHTTPClient(fetcher.ClientOptions{Accept: "text/html"})
	return NewISIN(client, ratelimit.New(nil), url)
}

func embedded(t *testing.T) *Registry {
	t.Helper()
	r, err := Embedded()
	require.NoError(t, err)
	return r
}

func TestISIN_Registry(t *testing.T) {
	srv := isinServer(t, map[string][]byte{
		modeListed: isinPage(t, MarketListed,
			isinSection{TypeStock, []isinRow{{"1101", "台泥", "水泥工業"}, {"2330", "台積電", "半導體業"}}},
			isinSection{"ETF", []isinRow{{"0050", "元大台灣50", ""}}},
		),
		modeOTC: isinPage(t, MarketOTC,
			isinSection{TypeStock, []isinRow{{"6488", "環球晶", "半導體業"}}},
		),
	}, nil)

	r, err := newTestISIN(srv.URL + "/isin/C_public.jsp").Registry(context.Background())
	require.NoError(t, err)

	tickers, err := r.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1101", "2330", "6488"}, tickers)
	assert.Equal(t, 4, r.Len())

	assert.Equal(t, "台積電", r.Name("2330"))

	etf, ok := r.Lookup("0050")
	require.True(t, ok)
	assert.Equal(t, "ETF", etf.Type)
	assert.False(t, etf.IsCommonStock())

	otc, ok := r.Lookup("6488")
	require.True(t, ok)
	assert.Equal(t, MarketOTC, otc.Market)
	assert.Equal(t, "半導體業", otc.Group)
	assert.Equal(t, "TW00064880000", otc.ISIN)
}

func TestISIN_BoardFailure(t *testing.T) {
	srv := isinServer(t, map[string][]byte{
		modeListed: isinPage(t, MarketListed, isinSection{TypeStock, []isinRow{{"1101", "台泥", "水泥工業"}}}),
	}, nil)

	_, err := newTestISIN(srv.URL).Registry(context.Background())
	assert.ErrorContains(t, err, "strMode=4")
}

func TestISIN_EmptyPage(t *testing.T) {
	srv := isinServer(t, map[string][]byte{
		modeListed: isinPage(t, MarketListed),
		modeOTC:    isinPage(t, MarketOTC),
	}, nil)

	_, err := newTestISIN(srv.URL).Registry(context.Background())
	assert.ErrorContains(t, err, "lists no securities")
}

// TestDirectory_FullUniverse sizes the boards like the real exchanges:
// roughly a thousand TWSE and eight hundred TPEx common stocks plus funds.
func TestDirectory_FullUniverse(t *testing.T) {
	var listed, otc, etfs []isinRow
	for i := 0; i < 980; i++ {
		code := fmt.Sprintf("%04d", 1000+i)
		listed = append(listed, isinRow{code, "上市" + code, "電子工業"})
	}
	for i := 0; i < 820; i++ {
		code := fmt.Sprintf("%04d", 3000+i)
		otc = append(otc, isinRow{code, "上櫃" + code, "電子工業"})
	}
	for i := 0; i < 200; i++ {
		etfs = append(etfs, isinRow{fmt.Sprintf("00%04d", i), "基金", ""})
	}

	srv := isinServer(t, map[string][]byte{
		modeListed: isinPage(t, MarketListed, isinSection{TypeStock, listed}, isinSection{"ETF", etfs}),
		modeOTC:    isinPage(t, MarketOTC, isinSection{TypeStock, otc}),
	}, nil)

	fallback := embedded(t)
	d := NewDirectory(newTestISIN(srv.URL), fallback, zerolog.Nop())

	tickers, err := d.Tickers(context.Background())
	require.NoError(t, err)

	assert.Len(t, tickers, 1800)
	assert.Equal(t, 2000, d.Len())
	assert.Equal(t, "上櫃3819", d.Name("3819"))
	assert.Equal(t, "台積電", d.Name("2330"), "codes missing from the live registry resolve through the fallback")
}

func TestDirectory_FallsBackWhenPagesFail(t *testing.T) {
	srv := isinServer(t, nil, nil)

	d := NewDirectory(newTestISIN(srv.URL), embedded(t), zerolog.Nop())

	tickers, err := d.Tickers(context.Background())
	require.NoError(t, err)
	assert.Len(t, tickers, 42)
	assert.Equal(t, "台積電", d.Name("2330"))
}

func TestDirectory_KeepsLastLiveRegistry(t *testing.T) {
	var down atomic.Bool
	srv := isinServer(t, map[string][]byte{
		modeListed: isinPage(t, MarketListed, isinSection{TypeStock, []isinRow{{"2330", "台積電", "半導體業"}}}),
		modeOTC:    isinPage(t, MarketOTC, isinSection{TypeStock, []isinRow{{"6488", "環球晶", "半導體業"}}}),
	}, &down)

	d := NewDirectory(newTestISIN(srv.URL), embedded(t), zerolog.Nop())

	first, err := d.Tickers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"2330", "6488"}, first)

	down.Store(true)

	second, err := d.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDirectory_CancelledContext(t *testing.T) {
	srv := isinServer(t, nil, nil)
	d := NewDirectory(newTestISIN(srv.URL), embedded(t), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Tickers(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirectory_WithoutLiveLister(t *testing.T) {
	fallback := embedded(t)
	d := NewDirectory(nil, fallback, zerolog.Nop())

	tickers, err := d.Tickers(context.Background())
	require.NoError(t, err)
	assert.Len(t, tickers, 42)
	assert.Equal(t, fallback.Len(), d.Len())
}
