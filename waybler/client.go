package waybler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	BaseURL string = "https://api.waybler.com/v7"
	AppUUID string = "8d0a2cfa-4373-43e2-951a-8bff7c25d4d7"

	DefaultReadyTimeout = 30 * time.Second

	userAgent = "autowaybler"
)

// Client owns one authenticated session and one feed connection.
// A Client is meant to be used for a single evaluation cycle.
type Client struct {
	httpClient   *http.Client
	config       *Config
	clock        clockwork.Clock
	readyTimeout time.Duration

	token      string
	userID     string
	tokenMutex sync.RWMutex

	snapshot *Snapshot

	connMutex sync.Mutex
	conn      *websocket.Conn
	closed    bool
	ready     chan struct{}
	readyOnce sync.Once
	failed    chan error
	done      chan struct{}
}

type Option func(*Client)

// WithClock sets the clock used for price windows and the ready timeout.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

func WithReadyTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.readyTimeout = d
	}
}

// WithHTTPClient sets the client whose transport is wrapped for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

var log = logrus.StandardLogger()

func New(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	log.Debugf("waybler New")
	c := &Client{
		httpClient:   &http.Client{},
		config:       config,
		clock:        clockwork.NewRealClock(),
		readyTimeout: DefaultReadyTimeout,
		snapshot:     NewSnapshot(),
		ready:        make(chan struct{}),
		failed:       make(chan error, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = &http.Client{
		Transport: wayblerRoundTripper{
			inner:  c.httpClient.Transport,
			client: c,
		},
		Timeout: c.httpClient.Timeout,
	}
	return c, nil
}

// Initialize logs in and blocks until the feed delivered its initial state.
func (c *Client) Initialize(ctx context.Context) error {
	log.Debugf("initializing client")
	if err := c.Login(ctx); err != nil {
		return err
	}
	log.Debugf("login OK, user id %s", c.UserID())
	return c.connectFeed(ctx)
}

func (c *Client) Login(ctx context.Context) error {
	log.Debugf("logging in")
	req := loginRequest{
		Email:    c.config.Username,
		Password: c.config.Password,
	}

	var response loginResponse
	if err := c.do(ctx, http.MethodPost, "/app/authenticate/login", req, &response); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if response.Token == "" {
		return fmt.Errorf("%w: login response has no token", ErrAuthentication)
	}

	userID, err := userIDFromToken(response.Token)
	if err != nil {
		return fmt.Errorf("%w: could not parse user ID from token: %w", ErrAuthentication, err)
	}

	c.tokenMutex.Lock()
	defer c.tokenMutex.Unlock()
	c.token = response.Token
	c.userID = userID
	return nil
}

// StartCharging starts a session on the first station with a plugged-in vehicle.
// priceLimit is the pre-VAT spot price limit. It returns nil when no station is eligible.
func (c *Client) StartCharging(ctx context.Context, priceLimit float64) (*CreateChargeSessionResponse, error) {
	station, zone := c.snapshot.FirstConnectedStation()
	if station == nil {
		return nil, nil
	}
	log.Debugf("starting session on station %d (%s) in zone %d, limit %v", station.StationID, station.Name, zone.ZoneID, priceLimit)

	req := CreateChargeSessionRequest{
		ModelType:      modelTypeCreateChargeSession,
		StationID:      station.StationID,
		ContractUserID: zone.ContractUserID,
		SpotPriceLimit: priceLimit,
	}
	var response CreateChargeSessionResponse
	if err := c.do(ctx, http.MethodPut, "/"+c.UserID()+"/sessions/charge", req, &response); err != nil {
		return nil, fmt.Errorf("start charging failed: %w", err)
	}
	log.Debugf("create session response: %+v", response)
	return &response, nil
}

func (c *Client) IsVehicleConnected() bool {
	return c.snapshot.IsVehicleConnected()
}

func (c *Client) IsCharging() bool {
	return c.snapshot.IsCharging()
}

// LowestPrice returns the cheapest entry between now and now+window.
func (c *Client) LowestPrice(window time.Duration) *PriceListEntry {
	return c.snapshot.LowestPrice(c.clock.Now(), window)
}

func (c *Client) Zones() []ChargeZone {
	return c.snapshot.Zones()
}

func (c *Client) Now() time.Time {
	return c.clock.Now()
}

func (c *Client) UserID() string {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	return c.userID
}

func (c *Client) getToken() string {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		text, _ := io.ReadAll(res.Body)
		return &APIError{StatusCode: res.StatusCode, Body: string(text)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("unable to decode %s %s response: %w", method, path, err)
	}
	return nil
}
