package twse

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedded_Tickers(t *testing.T) {
	r, err := Embedded()
	require.NoError(t, err)

	tickers, err := r.Tickers(context.Background())
	require.NoError(t, err)

	assert.Len(t, tickers, 42)
	assert.True(t, sort.StringsAreSorted(tickers), "tickers should be sorted")
	assert.Contains(t, tickers, "2330")
	assert.Contains(t, tickers, "6488", "TPEx listings are part of the universe")

	for _, excluded := range []string{"0050", "0056", "006201", "9105", "7610"} {
		assert.NotContains(t, tickers, excluded)
	}
}

func TestEmbedded_Name(t *testing.T) {
	r, err := Embedded()
	require.NoError(t, err)

	assert.Equal(t, "台積電", r.Name("2330"))
	assert.Equal(t, "", r.Name("9999"))

	c, ok := r.Lookup("5483")
	require.True(t, ok)
	assert.Equal(t, MarketOTC, c.Market)
	assert.True(t, c.IsCommonStock())
}

func TestLoad_FilesOverrideInOrder(t *testing.T) {
	dir := t.TempDir()
	twse := filepath.Join(dir, "twse_equities.csv")
	tpex := filepath.Join(dir, "tpex_equities.csv")

	require.NoError(t, os.WriteFile(twse, []byte("\ufefftype,code,name,ISIN,start,market,group,CFI\n"+
		"股票,2330,台積電,TW0002330008,1994/09/05,上市,半導體業,ESVUFR\n"+
		"股票,1101,台泥,TW0001101004,1962/02/09,上市,水泥工業,ESVUFR\n"), 0o644))
	require.NoError(t, os.WriteFile(tpex, []byte("type,code,name,ISIN,start,market,group,CFI\n"+
		"股票,1101,台泥,TW0001101004,1962/02/09,興櫃,水泥工業,ESVUFR\n"+
		"股票,6488,環球晶,TW0006488000,2015/09/25,上櫃,半導體業,ESVUFR\n"), 0o644))

	r, err := Load(twse, tpex)
	require.NoError(t, err)

	tickers, err := r.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2330", "6488"}, tickers)
	assert.Equal(t, 3, r.Len())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("symbol,name\nAAPL,Apple\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "missing column")

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("type,code,name,market\n"), 0o644))
	_, err = Load(empty)
	assert.ErrorContains(t, err, "no codes")
}

func TestLoad_NoPathsUsesSnapshot(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)
	assert.Greater(t, r.Len(), 40)
}

func TestTickers_CancelledContext(t *testing.T) {
	r, err := Embedded()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Tickers(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
