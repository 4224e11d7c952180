package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudia/cloudia/internal/protocol"
	"github.com/cloudia/cloudia/internal/sink"
)

var t0 = time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)

func testRecord(devEUI string) sink.Record {
	return sink.Record{
		DevEUI:   devEUI,
		Name:     "Cellar",
		Port:     protocol.PortMultiDiffs,
		Battery:  3.8,
		Received: t0,
		Epochs: []protocol.Epoch{{
			Index: 0,
			Time:  t0,
			Samples: []protocol.Sample{
				{Name: "T", Value: 23.3, InRange: true},
				{Name: "H", Value: 140, InRange: false},
			},
		}},
	}
}

func newTestFeed(t *testing.T, cfg Config) (*Feed, string) {
	t.Helper()
	f, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(f.Handler())
	t.Cleanup(ts.Close)
	return f, "ws" + strings.TrimPrefix(ts.URL, "http") + FeedPath
}

func waitClients(t *testing.T, f *Feed, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.GetActiveConnections() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", f.GetActiveConnections(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, ch <-chan FeedRecord) FeedRecord {
	t.Helper()
	select {
	case rec, ok := <-ch:
		if !ok {
			t.Fatal("feed channel closed")
		}
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for record")
	}
	return FeedRecord{}
}

func TestNewFeedRecord(t *testing.T) {
	fr := NewFeedRecord(testRecord("AA"))
	if fr.Port != 90 || fr.Battery != 3.8 || fr.DisplayName() != "Cellar" {
		t.Errorf("NewFeedRecord() = %+v", fr)
	}
	if len(fr.Epochs) != 1 || fr.Epochs[0].Values["T"] != 23.3 {
		t.Fatalf("epochs = %+v", fr.Epochs)
	}
	if len(fr.Epochs[0].Flags) != 1 || fr.Epochs[0].Flags[0] != "H" {
		t.Errorf("out_of_range = %v, want [H]", fr.Epochs[0].Flags)
	}

	if (FeedRecord{DevEUI: "BB"}).DisplayName() != "BB" {
		t.Error("DisplayName() should fall back to DevEUI")
	}
}

func TestFeedBroadcast(t *testing.T) {
	f, url := newTestFeed(t, Config{History: -1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	b, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitClients(t, f, 2)

	if err := f.Write(ctx, testRecord("70B3D57ED005A1B2")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	for _, ch := range []<-chan FeedRecord{a, b} {
		rec := receive(t, ch)
		if rec.DevEUI != "70B3D57ED005A1B2" || !rec.Epochs[0].Time.Equal(t0) {
			t.Errorf("received %+v", rec)
		}
	}

	cancel()
	waitClients(t, f, 0)
}

func TestFeedHistory(t *testing.T) {
	f, url := newTestFeed(t, Config{History: 2})
	ctx := context.Background()

	for _, dev := range []string{"01", "02", "03"} {
		if err := f.Write(ctx, testRecord(dev)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := Dial(dialCtx, url)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if got := receive(t, ch).DevEUI; got != "02" {
		t.Errorf("first replayed = %s, want 02", got)
	}
	if got := receive(t, ch).DevEUI; got != "03" {
		t.Errorf("second replayed = %s, want 03", got)
	}
}

func TestSlowClientDropsMessages(t *testing.T) {
	c := &client{send: make(chan []byte, 1), remote: "test"}
	if !c.trySend([]byte("a")) {
		t.Fatal("first send should be queued")
	}
	if c.trySend([]byte("b")) {
		t.Error("second send should be dropped")
	}
	if c.dropped != 1 {
		t.Errorf("dropped = %d, want 1", c.dropped)
	}

	c.close()
	c.close()
	if c.trySend([]byte("c")) {
		t.Error("send after close should fail")
	}
}

func TestWriteWhileClientsDisconnect(t *testing.T) {
	f, err := New(Config{History: -1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	clients := make([]*client, 20)
	for i := range clients {
		clients[i] = &client{send: make(chan []byte, 4), remote: "test"}
		f.addClient(clients[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := f.Write(context.Background(), testRecord("AA")); err != nil {
				t.Errorf("Write() error = %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			f.removeClient(c)
		}
	}()
	wg.Wait()

	if n := f.GetActiveConnections(); n != 0 {
		t.Errorf("clients = %d, want 0", n)
	}
	for _, c := range clients {
		if c.trySend([]byte("late")) {
			t.Error("send to a removed client should fail")
		}
	}
}

func TestHealth(t *testing.T) {
	f, _ := newTestFeed(t, Config{})
	if err := f.Write(context.Background(), testRecord("AA")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	f.addClient(&client{send: make(chan []byte, 4), remote: "test"})

	rr := httptest.NewRecorder()
	f.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var st Status
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Records != 1 || st.Clients != 1 || st.Version == "" {
		t.Errorf("Status = %+v", st)
	}
}

func TestFeedRejectsPlainHTTP(t *testing.T) {
	f, _ := newTestFeed(t, Config{})
	rr := httptest.NewRecorder()
	f.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, FeedPath, nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a non-upgrade request", rr.Code)
	}
}

func TestRunShutsDown(t *testing.T) {
	f, err := New(Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	addr, err := f.Listen()
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	ch, err := Dial(context.Background(), "ws://"+addr.String()+FeedPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitClients(t, f, 1)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("unexpected record after shutdown")
		}
	case <-time.After(2 * time.Second):
		t.Error("client channel not closed after shutdown")
	}
}

func TestNewBadCertificate(t *testing.T) {
	_, err := New(Config{CertPath: "/nonexistent/cert.pem", KeyPath: "/nonexistent/key.pem"})
	if err == nil || !strings.Contains(err.Error(), "TLS") {
		t.Errorf("New() error = %v, want TLS error", err)
	}
	if info := GetTLSInfo(nil); info["enabled"] != false {
		t.Errorf("GetTLSInfo(nil) = %v", info)
	}
}
