package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"opensky-ingest/internal/apperr"
	"opensky-ingest/internal/auth"
	"opensky-ingest/internal/metrics"
	"opensky-ingest/pkg/logger"
)

const statesBody = `{
  "time": 1700000010,
  "states": [
    ["abc123","UAL123  ","United States",1700000000,1700000005,-50.1,25.2,10000.0,false,230.5,90.0,0.0,null,10200.0,"1200",false,0],
    ["bad",null,"Brazil"],
    ["e48df6","GLO1234 ","Brazil",1700000000,1700000003,-46.6,-23.4,3000.0,false,120.2,45.0,5.2,null,3100.0,null,false,9],
    ["e49001","AZU4321 ","Brazil",1700000000,1700000004,-47.0,-22.9,8000.0,false,200.0,180.0,-2.0,[1,2],8100.0,"7000",false,2]
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*OpenSkyClient, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := metrics.NewMetrics()
	return NewOpenSkyClient(srv.URL+"/", 5*time.Second, logger.Nop(), m), m
}

func TestFetchStatesDecodesRowsIndividually(t *testing.T) {
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/states/all" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(statesBody))
	})

	res := client.FetchStates(context.Background(), auth.Bearer("tok"))
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	// row 1 is short, row 2 has position source 9
	if len(res.States) != 2 {
		t.Fatalf("expected 2 decoded states, got %d", len(res.States))
	}
	if res.Skipped != 2 {
		t.Errorf("expected 2 skipped rows, got %d", res.Skipped)
	}
	if res.States[0].ICAO24 != "abc123" || res.States[1].ICAO24 != "e49001" {
		t.Errorf("unexpected order: %s, %s", res.States[0].ICAO24, res.States[1].ICAO24)
	}

	s := m.GetSnapshot()
	if s.StatesFetched != 2 || s.DecodeFailures != 2 || s.APIRequests != 1 || s.APIErrors != 0 {
		t.Errorf("unexpected metrics: %+v", s)
	}
}

func TestFetchStatesBasicAuth(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "pilot" || p != "pw" {
			t.Errorf("expected basic auth, got %q %q %v", u, p, ok)
		}
		_, _ = w.Write([]byte(`{"time":1,"states":[]}`))
	})

	res := client.FetchStates(context.Background(), auth.Basic("pilot", "pw"))
	if res.Err != nil || !res.Empty() {
		t.Errorf("expected empty successful result, got %+v", res)
	}
}

func TestFetchStatesNullStates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"time":1700000000,"states":null}`))
	})

	res := client.FetchStates(context.Background(), auth.Bearer("tok"))
	if res.Err != nil {
		t.Fatalf("null states is not a fetch error: %v", res.Err)
	}
	if !res.Empty() {
		t.Errorf("expected no states, got %d", len(res.States))
	}
}

func TestFetchStatesFailsSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"states": [[`))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, m := newTestClient(t, tc.handler)

			res := client.FetchStates(context.Background(), auth.Bearer("tok"))
			if !res.Empty() {
				t.Errorf("expected empty result, got %d states", len(res.States))
			}
			if !errors.Is(res.Err, apperr.ErrFetch) {
				t.Errorf("expected FetchError, got %v", res.Err)
			}
			if m.GetSnapshot().APIErrors != 1 {
				t.Errorf("expected one API error, got %d", m.GetSnapshot().APIErrors)
			}
		})
	}
}

func TestFetchStatesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewOpenSkyClient(url, time.Second, logger.Nop(), nil)
	res := client.FetchStates(context.Background(), auth.Bearer("tok"))
	if !res.Empty() || !errors.Is(res.Err, apperr.ErrFetch) {
		t.Errorf("expected empty result with FetchError, got %+v", res)
	}
}
