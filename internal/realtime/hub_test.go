package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
)

func startHub(t *testing.T, origins []string, total TotalFunc) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(origins, total)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHubSendsTotalThenBroadcasts(t *testing.T) {
	hub, srv := startHub(t, []string{"*"}, func(context.Context) (decimal.Decimal, error) {
		return decimal.RequireFromString("1500.50"), nil
	})
	conn := dial(t, srv, nil)

	first := readMessage(t, conn)
	if first.Type != MessageTotal || first.Total == nil || !first.Total.Equal(decimal.RequireFromString("1500.50")) {
		t.Fatalf("unexpected initial message %+v", first)
	}

	hub.DonationConfirmed(models.Donation{Reference: "R1", Amount: decimal.NewFromInt(10), Status: models.StatusSuccessful})
	msg := readMessage(t, conn)
	if msg.Type != MessageDonationConfirmed || msg.Donation == nil || msg.Donation.Reference != "R1" {
		t.Fatalf("unexpected broadcast %+v", msg)
	}
}

func TestHubAmountIsJSONNumber(t *testing.T) {
	hub, srv := startHub(t, []string{"*"}, func(context.Context) (decimal.Decimal, error) { return decimal.Zero, nil })
	conn := dial(t, srv, nil)
	readMessage(t, conn)

	hub.DonationConfirmed(models.Donation{Reference: "R1", Amount: decimal.RequireFromString("12.34")})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame struct {
		Donation map[string]json.RawMessage `json:"donation"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := string(frame.Donation["amount"]); got != "12.34" {
		t.Fatalf("amount encoded as %s, want 12.34", got)
	}
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, srv := startHub(t, []string{"https://donate.example.org"}, nil)

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}

	header.Set("Origin", "https://donate.example.org")
	dial(t, srv, header)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub([]string{"*"}, func(context.Context) (decimal.Decimal, error) { return decimal.Zero, nil })
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv, nil)
	readMessage(t, conn)

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) {
			t.Fatalf("expected a close frame, got %v", err)
		}
		return
	}
}
