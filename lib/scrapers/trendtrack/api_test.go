package trendtrack

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T) *Api {
	t.Helper()
	client := resty.New()
	client.SetBaseURL("https://console.example.com")
	httpmock.ActivateNonDefault(client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return newApi(client)
}

func TestApiCall(t *testing.T) {
	api := newTestApi(t)

	calls := 0
	httpmock.RegisterResponder("POST", "https://console.example.com/api/rpc",
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(200, `{"result":{"visits":42}}`), nil
		})

	var out struct {
		Visits int `json:"visits"`
	}
	err := api.Call(context.Background(), "metrics.trafficOverview", map[string]any{"domain": "acme.com"}, &out)
	require.NoError(t, err)
	require.Equal(t, 42, out.Visits)

	// identical call is served from the cache
	out.Visits = 0
	err = api.Call(context.Background(), "metrics.trafficOverview", map[string]any{"domain": "acme.com"}, &out)
	require.NoError(t, err)
	require.Equal(t, 42, out.Visits)
	require.Equal(t, 1, calls)

	// different params miss the cache
	err = api.Call(context.Background(), "metrics.trafficOverview", map[string]any{"domain": "other.com"}, &out)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestApiCallError(t *testing.T) {
	api := newTestApi(t)

	httpmock.RegisterResponder("POST", "https://console.example.com/api/rpc",
		httpmock.NewStringResponder(200, `{"error":{"code":-32000,"message":"unknown domain"}}`))

	var out struct{}
	err := api.Call(context.Background(), "metrics.trafficOverview", map[string]any{"domain": "nope"}, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown domain")

	// errors are never cached
	httpmock.Reset()
	httpmock.RegisterResponder("POST", "https://console.example.com/api/rpc",
		httpmock.NewStringResponder(500, `boom`))
	err = api.Call(context.Background(), "metrics.trafficOverview", map[string]any{"domain": "nope"}, &out)
	require.Error(t, err)
}
