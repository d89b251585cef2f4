package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/haze-team/haze-server/src/config"
	"github.com/haze-team/haze-server/src/matching"
	"github.com/haze-team/haze-server/src/models"
	"github.com/haze-team/haze-server/src/repositories"
)

const (
	secret    = "test-secret"
	testOffer = `{"type":"offer","sdp":"v=0\r\no=- 4215775240449105457 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"}`
)

func testConfig() config.Config {
	return config.Config{
		AppEnv:          "test",
		StoreDriver:     config.StoreMemory,
		JWTSecret:       secret,
		CORSOrigins:     "*",
		RateLimitMax:    100,
		RateLimitWindow: time.Minute,
		Matching: config.Matching{
			IntroduceTimeout:      10 * time.Second,
			FaceRecognitionWindow: 10 * time.Second,
			WebchatTimeout:        10 * time.Minute,
			RematchDelayFirst:     time.Second,
			RematchDelaySecond:    3 * time.Second,
			LookupTimeout:         5 * time.Second,
		},
		Images: config.Images{URLMode: config.ImageURLStored},
	}
}

func startServer(t *testing.T, users ...string) string {
	t.Helper()
	mem := repositories.NewMemory()
	for _, id := range users {
		mem.PutUser(models.User{ID: id, Nickname: "nick-" + id, Gender: models.GenderMale, Location: "Busan"})
		mem.PutImages(models.Images{UserID: id, URLs: []string{"https://img.example/" + id + ".png"}})
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(), logger, "test", WithMemoryStore(mem))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(15 * time.Second):
			t.Error("server did not stop")
		}
	})
	return ln.Addr().String()
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, addr, query string) *wsClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws"+query, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()
	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		c.t.Fatalf("send %s: %v", event, err)
	}
}

// await reads frames until event arrives, skipping everything else
func (c *wsClient) await(event string) json.RawMessage {
	c.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	_ = c.conn.SetReadDeadline(deadline)
	for {
		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.t.Fatalf("waiting for %s: %v", event, err)
		}
		if frame.Event == event {
			return frame.Data
		}
	}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestMatchAndSignalOverWebSocket(t *testing.T) {
	addr := startServer(t, "u1", "u2")

	alice := dial(t, addr, "?token="+token(t, "u1"))
	bob := dial(t, addr, "")
	bob.await(matching.EventOnlineUsers)

	// the authenticated socket acts for its own user whatever it claims
	alice.send(matching.EventStartMatching, map[string]string{"userId": "u2"})
	time.Sleep(50 * time.Millisecond)
	bob.send(matching.EventStartMatching, map[string]string{"userId": "u2"})

	var seenByAlice, seenByBob matching.PartnerInfo
	if err := json.Unmarshal(alice.await(matching.EventIntroduceEachUser), &seenByAlice); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(bob.await(matching.EventIntroduceEachUser), &seenByBob); err != nil {
		t.Fatal(err)
	}
	if seenByAlice.ID != "u2" || seenByBob.ID != "u1" {
		t.Fatalf("alice saw %s, bob saw %s", seenByAlice.ID, seenByBob.ID)
	}
	if seenByAlice.ProfileURL != "https://img.example/u2.png" || seenByAlice.Location != "Busan" {
		t.Errorf("partner info = %+v", seenByAlice)
	}

	alice.send(matching.EventRespondToIntroduce, map[string]string{"userId": "u1", "response": "accept"})
	time.Sleep(50 * time.Millisecond)
	bob.send(matching.EventRespondToIntroduce, map[string]string{"userId": "u2", "response": "accept"})

	var ra, rb matching.MatchResult
	_ = json.Unmarshal(alice.await(matching.EventMatchResult), &ra)
	_ = json.Unmarshal(bob.await(matching.EventMatchResult), &rb)
	if !ra.Result || !rb.Result || ra.Initiator || !rb.Initiator {
		t.Fatalf("results alice=%+v bob=%+v", ra, rb)
	}

	resp, err := http.Get("http://" + addr + "/api/matching/stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats matching.Stats
	_ = json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	if stats.Connections != 2 || stats.Sessions != 1 {
		t.Errorf("stats = %+v", stats)
	}

	bob.send(matching.EventOffer, map[string]any{"offer": json.RawMessage(testOffer), "roomName": rb.RoomName})
	var offer struct {
		Offer    json.RawMessage `json:"offer"`
		RoomName string          `json:"roomName"`
	}
	if err := json.Unmarshal(alice.await(matching.EventOffer), &offer); err != nil {
		t.Fatal(err)
	}
	if string(offer.Offer) != testOffer || offer.RoomName != rb.RoomName {
		t.Errorf("offer = %s in %q", offer.Offer, offer.RoomName)
	}

	_ = bob.conn.Close()
	alice.await(matching.EventPartnerDisconnected)
}

func TestSocketRequiresValidToken(t *testing.T) {
	addr := startServer(t)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws?token=bogus", nil)
	if err == nil {
		t.Fatal("dial with a bad token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %v", resp)
	}
}

func TestHTTPSurface(t *testing.T) {
	addr := startServer(t)

	resp, err := http.Get("http://" + addr + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}

	resp, err = http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "haze_matching_connections") || !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("metrics output missing series")
	}
}

func TestNewRejectsUnreachableMongo(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = config.StoreMongo
	cfg.DBHost = "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200"
	cfg.DBName = "haze"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := New(context.Background(), cfg, logger, "test"); err == nil {
		t.Error("New() succeeded without a database")
	}
}
