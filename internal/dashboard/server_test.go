package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/epokrso/steam-analyzer/config"
	"github.com/epokrso/steam-analyzer/internal/control"
	"github.com/epokrso/steam-analyzer/internal/model"
	"github.com/epokrso/steam-analyzer/logger"
)

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":                           "0.0.0.0:8181",
		"  :9090  ":                  "0.0.0.0:9090",
		"localhost":                  "localhost:8181",
		"0.0.0.0:80":                 "0.0.0.0:80",
		"[::1]:443":                  "[::1]:443",
		"::1":                        "[::1]:8181",
		"*:8181":                     "0.0.0.0:8181",
		"http://192.0.2.10:8080":     "192.0.2.10:8080",
		"https://192.0.2.10":         "192.0.2.10:8181",
		"http://:7070":               "0.0.0.0:7070",
		"https://dash.example.com/":  "dash.example.com:8181",
	}

	for input, want := range cases {
		if got := normalizeAddress(input); got != want {
			t.Fatalf("normalizeAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewServerDisabled(t *testing.T) {
	srv, err := NewServer(config.DashboardConfig{Enabled: false}, payloadStore(t), control.New(), nil, logger.Logger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if srv != nil {
		t.Fatal("disabled dashboard must yield a nil server")
	}
	if err := srv.Run(context.Background(), "app"); err != nil {
		t.Fatalf("nil server Run must be a no-op, got %v", err)
	}
}

func newTestServer(t *testing.T) (*Server, *control.Signals) {
	t.Helper()
	signals := control.New()
	catalog := []config.CatalogEntry{{AppID: 730, Name: "Counter-Strike 2", ContextID: 2}}
	store := payloadStore(t)
	store.Update("730", func(g *model.GameState) {
		g.ItemCounts["AK-47"] = 1
		g.PriceCache["AK-47"] = 275
	})

	srv, err := NewServer(config.DashboardConfig{
		Enabled:         true,
		Address:         ":9000",
		RefreshInterval: 50 * time.Millisecond,
		ResourceHistory: 10,
	}, store, signals, catalog, logger.Logger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if srv == nil {
		t.Fatal("expected dashboard server, got nil")
	}
	if got := srv.Address(); got != "0.0.0.0:9000" {
		t.Fatalf("server address = %q, want %q", got, "0.0.0.0:9000")
	}
	return srv, signals
}

func TestDataEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router, err := srv.buildRouter("steam-analyzer")
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if cc := res.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("cache-control = %q", cc)
	}

	var payload Payload
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.ExpensiveItems) != 1 || payload.ExpensiveItems[0].ItemKey != "AK-47" {
		t.Fatalf("payload items = %+v", payload.ExpensiveItems)
	}
}

func TestIndexRenders(t *testing.T) {
	srv, _ := newTestServer(t)
	router, err := srv.buildRouter("steam-analyzer")
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "steam-analyzer") {
		t.Fatal("index page does not include the app name")
	}
}

func TestStopEndpointRaisesSignal(t *testing.T) {
	srv, signals := newTestServer(t)
	router, err := srv.buildRouter("steam-analyzer")
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/stop", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK || res.Body.String() != "stopping" {
		t.Fatalf("response = %d %q", res.Code, res.Body.String())
	}
	if !signals.StopRequested() {
		t.Fatal("stop signal not raised")
	}
	if signals.UpdateRequested() {
		t.Fatal("stop must not raise the update signal")
	}
}

func TestUpdateEndpointRaisesBothSignals(t *testing.T) {
	srv, signals := newTestServer(t)
	router, err := srv.buildRouter("steam-analyzer")
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/update", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK || res.Body.String() != "updating" {
		t.Fatalf("response = %d %q", res.Code, res.Body.String())
	}
	if !signals.UpdateRequested() || !signals.StopRequested() {
		t.Fatal("update must raise both signals")
	}
}

func TestWebsocketPushesPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	router, err := srv.buildRouter("steam-analyzer")
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	ts := httptest.NewServer(router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var payload Payload
	if err := conn.ReadJSON(&payload); err != nil {
		t.Fatalf("read first payload: %v", err)
	}
	if len(payload.ExpensiveItems) != 1 {
		t.Fatalf("pushed payload = %+v", payload)
	}

	// A second frame arrives on the refresh tick.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&payload); err != nil {
		t.Fatalf("read ticked payload: %v", err)
	}
}

func TestResourcesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router, err := srv.buildRouter("steam-analyzer")
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/resources", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["resources"]; !ok {
		t.Fatal("missing resources key")
	}
}
