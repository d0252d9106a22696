package waybler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedServer struct {
	*httptest.Server
	token   string
	queries chan url.Values
	headers chan http.Header
}

// newFeedServer serves the login endpoint and the websocket feed. feed is called
// with the upgraded connection and owns it until it returns.
func newFeedServer(t *testing.T, feed func(conn *websocket.Conn)) *feedServer {
	t.Helper()
	fs := &feedServer{
		token:   newTestToken(t, jwt.MapClaims{userDataClaim: "42"}),
		queries: make(chan url.Values, 1),
		headers: make(chan http.Header, 1),
	}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/v7/app/authenticate/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginResponse{Token: fs.token})
	})
	mux.HandleFunc("/v7/app/websocket", func(w http.ResponseWriter, r *http.Request) {
		fs.queries <- r.URL.Query()
		fs.headers <- r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		feed(conn)
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) config() *Config {
	cfg := testConfig()
	cfg.BaseURL = fs.URL + "/v7"
	return cfg
}

// drain blocks until the client closes the connection.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestClient_Initialize(t *testing.T) {
	zone, err := os.ReadFile("../resources/charge-zone.json")
	require.NoError(t, err)

	fs := newFeedServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, zone)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"modelType":"SomethingElse"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"modelType":"ChargeZoneModel","zoneId":"oops"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"modelType":"WebsocketInitMessage"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"modelType":"WebsocketInitMessage"}`))
		drain(conn)
	})

	c, err := New(fs.config())
	require.NoError(t, err)
	require.NoError(t, c.Initialize(context.Background()))
	defer c.Disconnect()

	query := <-fs.queries
	assert.Equal(t, fs.token, query.Get("jwt"))
	assert.Equal(t, AppUUID, query.Get("app-uuid"))
	header := <-fs.headers
	assert.Equal(t, AppUUID, header.Get("x-app-uuid"))

	assert.Equal(t, "42", c.UserID())
	assert.True(t, c.IsVehicleConnected())
	assert.False(t, c.IsCharging())

	zones := c.Zones()
	require.Len(t, zones, 1)
	assert.Equal(t, 1201, zones[0].ZoneID)
	assert.Equal(t, 5521, zones[0].ContractUserID)
	assert.Len(t, zones[0].PriceList, 2)
}

func TestClient_InitializeTimeout(t *testing.T) {
	fs := newFeedServer(t, drain)

	c, err := New(fs.config(), WithReadyTimeout(50*time.Millisecond))
	require.NoError(t, err)
	defer c.Disconnect()

	err = c.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestClient_InitializePrematureClose(t *testing.T) {
	fs := newFeedServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	c, err := New(fs.config())
	require.NoError(t, err)
	defer c.Disconnect()

	err = c.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestClient_InitializeContextCancelled(t *testing.T) {
	fs := newFeedServer(t, drain)

	c, err := New(fs.config())
	require.NoError(t, err)
	defer c.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = c.Initialize(ctx)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestClient_InitializeLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v7/app/authenticate/login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusBadRequest)
	})
	mux.HandleFunc("/v7/app/websocket", func(w http.ResponseWriter, r *http.Request) {
		t.Error("feed must not be opened after a failed login")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig()
	cfg.BaseURL = srv.URL + "/v7"
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Disconnect()

	err = c.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestClient_DisconnectIdempotent(t *testing.T) {
	fs := newFeedServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"modelType":"WebsocketInitMessage"}`))
		drain(conn)
	})

	c, err := New(fs.config())
	require.NoError(t, err)
	require.NoError(t, c.Initialize(context.Background()))

	c.Disconnect()
	c.Disconnect()
	assert.True(t, c.isClosed())
}

func TestClient_DisconnectBeforeInitialize(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)
	c.Disconnect()
	c.Disconnect()
}

func TestClient_HandleMessageLastWriteWins(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	require.NoError(t, c.handleMessage([]byte(`{"modelType":"ChargeZoneModel","zoneId":7,"stationGroups":[{"stations":[{"stationId":1,"state":"Busy"}]}]}`)))
	assert.True(t, c.IsCharging())

	require.NoError(t, c.handleMessage([]byte(`{"modelType":"ChargeZoneModel","zoneId":7,"stationGroups":[{"stations":[{"stationId":1,"state":"Ok"}]}]}`)))
	assert.False(t, c.IsCharging())
	assert.False(t, c.IsVehicleConnected())

	var parseErr *ParseError
	err = c.handleMessage([]byte(`{"modelType":"ChargeZoneModel","zoneId":[]}`))
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "ChargeZoneModel", parseErr.ModelType)

	assert.NoError(t, c.handleMessage([]byte(`{"hello":"world"}`)))
}

func TestFeedURL(t *testing.T) {
	u, err := FeedURL("https://api.waybler.com/v7", "a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.waybler.com/v7/app/websocket?app-uuid="+AppUUID+"&jwt=a.b.c", u)

	u, err = FeedURL("http://127.0.0.1:8080/v7/", "t")
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:8080/v7/app/websocket?app-uuid="+AppUUID+"&jwt=t", u)
}
