package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1 Main St, Austin, TX", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 30.27, "lng": -97.74}}}]
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	require.True(t, client.Available())

	r, err := client.Geocode(context.Background(), "1 Main St, Austin, TX")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.InDelta(t, 30.27, r.Latitude, 1e-9)
	assert.InDelta(t, -97.74, r.Longitude, 1e-9)
}

func TestGeocode_NoMatchIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	r, err := client.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestGeocode_EmptyAddress(t *testing.T) {
	client := NewClient("test-key", WithBaseURL("http://unreachable.invalid"))
	r, err := client.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestGeocode_Unconfigured(t *testing.T) {
	client := NewClient("")
	assert.False(t, client.Available())
	_, err := client.Geocode(context.Background(), "1 Main St")
	require.Error(t, err)
}

func TestGeocode_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Geocode(context.Background(), "1 Main St")
	require.Error(t, err)
}
