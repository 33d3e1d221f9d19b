package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestFMPClient(t *testing.T) {
	// Ensure the fmp client rejects an invalid config.
	_, err := NewFMPClient(&FMPConfig{})
	assert.Error(t, err)

	cfg := &FMPConfig{
		APIKey:  "key",
		BaseURL: "http://base",
	}

	fc, err := NewFMPClient(cfg)
	assert.NoError(t, err)

	// Ensure urls can be formed accurately.
	params := url.Values{}
	params.Add("a", "bbb")
	params.Add("b", "ccc")

	path := "/path"
	formedUrl := fc.formURL(path, params.Encode())
	assert.Equal(t, formedUrl, "http://base/path?a=bbb&b=ccc")

	// Ensure fetching daily quotes fails if the client is not configured properly.
	start := time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = fc.FetchDailyHistorical(context.Background(), "XOM", start, time.Time{})
	assert.Error(t, err)

	// Ensure daily quotes can be parsed, in ascending date order.
	data := `[{"symbol":"XOM","date":"2003-01-03","open":34.2,"close":34.8},
		{"symbol":"XOM","date":"2003-01-02","open":33.9,"close":34.1}]`
	gjd := gjson.Parse(data).Array()

	series, err := fc.ParseQuotes(gjd, "XOM")
	assert.NoError(t, err)
	assert.Equal(t, series.Symbol, "XOM")
	assert.Equal(t, len(series.Quotes), 2)
	assert.Equal(t, series.Quotes[0].Open, 33.9)
	assert.Equal(t, series.Quotes[0].Close, 34.1)
	assert.Equal(t, series.Quotes[0].Date.Day(), 2)
	assert.Equal(t, series.Quotes[1].Open, 34.2)
	assert.Equal(t, series.Quotes[1].Close, 34.8)

	// Ensure malformed dates are an error.
	bad := gjson.Parse(`[{"date":"01/02/2003","open":1,"close":2}]`).Array()
	_, err = fc.ParseQuotes(bad, "XOM")
	assert.Error(t, err)
}

func TestFMPClientFetch(t *testing.T) {
	payload := `[{"symbol":"XOM","date":"2003-01-02","open":33.9,"close":34.1}]`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Query().Get("symbol"), "XOM")
		assert.Equal(t, r.URL.Query().Get("apikey"), "key")
		assert.Equal(t, r.URL.Query().Get("from"), "2003-01-01")
		assert.Equal(t, r.URL.Query().Get("to"), "2008-01-01")

		w.Write([]byte(payload))
	}))
	defer server.Close()

	fc, err := NewFMPClient(&FMPConfig{APIKey: "key", BaseURL: server.URL})
	assert.NoError(t, err)

	start := time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)

	data, err := fc.FetchDailyHistorical(context.Background(), "XOM", start, end)
	assert.NoError(t, err)
	assert.Equal(t, len(data), 1)
	assert.Equal(t, data[0].Get("open").Float(), 33.9)
}
