package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/etabench/etabench/internal/catalog"
	"github.com/etabench/etabench/internal/eta"
	wsHub "github.com/etabench/etabench/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func record(city string, flag eta.Flag) eta.ClassifiedRecord {
	return eta.ClassifiedRecord{
		Record: eta.Record{
			RunID:        "20251129_083000",
			UID:          "u-" + city,
			City:         city,
			ReferenceETA: 100,
			TimeBucket:   eta.BucketMorning,
		},
		Comparisons: map[eta.Provider]eta.Classification{
			eta.ProviderMappls: {Flag: flag},
		},
	}
}

func newCatalog(cities ...string) *catalog.Catalog {
	c := catalog.New()
	for _, city := range cities {
		c.Add(city+".csv", catalog.KindCSV, []eta.ClassifiedRecord{record(city, eta.FlagSimilar)})
	}
	return c
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cleanup function.
func startHub(t *testing.T, c *catalog.Catalog) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(c, eta.ProviderMappls, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateAnalysis(t *testing.T) {
	wsURL, _, _ := startHub(t, newCatalog("Delhi"))

	conn := dial(t, wsURL)
	m := readMessage(t, conn)

	if m.Event != "analysis" {
		t.Errorf("event: got %q, want analysis", m.Event)
	}
	if m.Data.Comparison != eta.ProviderMappls {
		t.Errorf("comparison: got %q", m.Data.Comparison)
	}
	if m.Data.GeneratedAt == "" {
		t.Error("generatedAt: missing")
	}
	if m.Data.SourceCount != 1 || m.Data.TotalRecords != 1 {
		t.Errorf("counts: %d sources, %d records", m.Data.SourceCount, m.Data.TotalRecords)
	}
	if len(m.Data.CityStats) != 1 || m.Data.CityStats[0].City != "Delhi" {
		t.Errorf("cityStats: %+v", m.Data.CityStats)
	}
}

func TestHub_EmptyCatalog(t *testing.T) {
	wsURL, _, _ := startHub(t, catalog.New())
	conn := dial(t, wsURL)
	m := readMessage(t, conn)

	if m.Data.TotalRecords != 0 {
		t.Errorf("totalRecords: got %d, want 0", m.Data.TotalRecords)
	}
	if len(m.Data.CityStats) != 0 {
		t.Errorf("cityStats: got %d entries, want 0", len(m.Data.CityStats))
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newCatalog())

	for i := 0; i < 3; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn) // consume initial message
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newCatalog())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	c := newCatalog()
	wsURL, _, _ := startHub(t, c)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate analysis (empty catalog)

	// Add a source after connect.
	c.Add("late.csv", catalog.KindCSV, []eta.ClassifiedRecord{record("Pune", eta.FlagOverestimate)})

	// Keep reading until a tick reflects the new source.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no broadcast carried the new source")
		}
		m := readMessage(t, conn)
		if m.Data.TotalRecords == 1 {
			if len(m.Data.CityStats) != 1 || m.Data.CityStats[0].City != "Pune" {
				t.Errorf("cityStats: %+v", m.Data.CityStats)
			}
			return
		}
	}
}

func TestHub_AllClientsReceiveBroadcast(t *testing.T) {
	wsURL, _, _ := startHub(t, newCatalog("Delhi"))

	conns := make([]*websocket.Conn, 3)
	for i := 0; i < 3; i++ {
		conns[i] = dial(t, wsURL)
	}

	for i, conn := range conns {
		m := readMessage(t, conn)
		if m.Event != "analysis" {
			t.Errorf("client %d: event: got %q, want analysis", i, m.Event)
		}
	}
}

func TestHub_BroadcastDuringDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newCatalog("Delhi"))

	// Churn connections while the ticker broadcasts. A broadcast sending on a
	// channel closed by a concurrent unregister would panic the Run loop.
	for i := 0; i < 20; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn)
		conn.Close()
	}

	time.Sleep(5 * testInterval)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after churn: got %d, want 0", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newCatalog())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel() // signal shutdown

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(catalog.New(), eta.ProviderMappls, testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
