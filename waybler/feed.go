package waybler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

type envelope struct {
	ModelType string `json:"modelType"`
}

// FeedURL derives the websocket endpoint from the API base URL.
func FeedURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/app/websocket"
	q := url.Values{}
	q.Set("jwt", token)
	q.Set("app-uuid", AppUUID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) connectFeed(ctx context.Context) error {
	feedURL, err := FeedURL(c.config.BaseURL, c.getToken())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	header := http.Header{}
	header.Set("x-app-uuid", AppUUID)
	header.Set("User-Agent", userAgent)

	conn, res, err := websocket.DefaultDialer.DialContext(ctx, feedURL, header)
	if err != nil {
		if res != nil {
			return fmt.Errorf("%w: dial returned %s: %w", ErrConnection, res.Status, err)
		}
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	c.connMutex.Lock()
	if c.closed {
		c.connMutex.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: client disconnected", ErrConnection)
	}
	c.conn = conn
	c.connMutex.Unlock()

	go c.listen(conn)

	timeout := c.clock.NewTimer(c.readyTimeout)
	defer timeout.Stop()

	select {
	case <-c.ready:
		log.Debugf("feed ready, %d zone(s) known", c.snapshot.Len())
		return nil
	case err := <-c.failed:
		return fmt.Errorf("%w: %w", ErrConnection, err)
	case <-timeout.Chan():
		return fmt.Errorf("%w: no init message within %s", ErrConnection, c.readyTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrConnection, ctx.Err())
	}
}

// listen is the only writer of the snapshot.
func (c *Client) listen(conn *websocket.Conn) {
	defer close(c.done)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				log.Debugf("feed closed")
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = fmt.Errorf("feed closed unexpectedly: %w", err)
			}
			log.Debugf("feed read error: %v", err)
			select {
			case c.failed <- err:
			default:
			}
			return
		}

		if err := c.handleMessage(message); err != nil {
			log.Warnf("ignoring feed message: %v", err)
		}
	}
}

func (c *Client) handleMessage(message []byte) error {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return &ParseError{Err: err}
	}

	switch env.ModelType {
	case modelTypeChargeZone:
		var zone ChargeZone
		if err := json.Unmarshal(message, &zone); err != nil {
			return &ParseError{ModelType: env.ModelType, Err: err}
		}
		c.snapshot.Put(zone)
		log.Debugf("zone %d (%s) updated: %d group(s), %d price(s)", zone.ZoneID, zone.Name, len(zone.StationGroups), len(zone.PriceList))
	case modelTypeWebsocketInit:
		c.readyOnce.Do(func() {
			close(c.ready)
		})
	case "":
		log.Debugf("feed message without modelType")
	default:
		log.Debugf("unhandled feed message %s", env.ModelType)
	}
	return nil
}

// Disconnect closes the feed. It can be called any number of times.
func (c *Client) Disconnect() {
	c.connMutex.Lock()
	if c.closed {
		c.connMutex.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connMutex.Unlock()

	if conn == nil {
		return
	}
	log.Debugf("disconnecting feed")
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	<-c.done
}

func (c *Client) isClosed() bool {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	return c.closed
}
