package livesync

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"danceforchange/models"
	ws "danceforchange/websocket"
)

// State is the connection lifecycle of the client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	// StateUnavailable is terminal for the automatic path: retries are
	// exhausted and the host must surface "live updates unavailable"
	// and fall back to Refresh.
	StateUnavailable
)

const (
	defaultMaxRetries  = 5
	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 5 * time.Second
)

// Config wires a Client. SocketURL points at the /ws endpoint
// (ws:// or wss://); API carries the REST half.
type Config struct {
	SocketURL     string
	API           *API
	UserID        primitive.ObjectID // identity used for optimistic reactions/comments
	OnStateChange func(State)
	MaxRetries    int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
}

// Client keeps one live connection to the hub, auto-rejoins the room
// after reconnects, and reconciles pushed events into its Feed.
type Client struct {
	cfg  Config
	feed *Feed

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	closed bool

	done chan struct{}
}

func NewClient(cfg Config) *Client {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	return &Client{
		cfg:  cfg,
		feed: NewFeed(),
		done: make(chan struct{}),
	}
}

// Feed exposes the derived post list.
func (c *Client) Feed() *Feed {
	return c.feed
}

// State reports the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	cb := c.cfg.OnStateChange
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// Connect dials the live channel, joins the room and starts consuming
// events. The connection re-establishes itself on transport loss with
// capped, increasing backoff.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)
	if err := c.dialAndJoin(ctx); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	c.setState(StateConnected)

	go c.readLoop()
	return nil
}

func (c *Client) dialAndJoin(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.SocketURL, nil)
	if err != nil {
		return err
	}

	// Room membership is not remembered across connections: every
	// fresh connection joins from scratch.
	if err := conn.WriteJSON(ws.Event{Type: ws.EventJoinMindTalk}); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)

	for {
		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed = c.closed
			c.mu.Unlock()
			if closed {
				return
			}
			if !c.reconnect() {
				return
			}
			continue
		}

		c.handle(data)
	}
}

// reconnect retries the transport with increasing backoff, rejoining
// the room on success. Missed events are not replayed; the host is
// expected to Refresh after a reconnect if it needs strict catch-up.
func (c *Client) reconnect() bool {
	c.setState(StateReconnecting)

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		delay := backoffFor(attempt, c.cfg.BaseBackoff, c.cfg.MaxBackoff)
		log.Printf("Live channel lost, reconnect attempt %d/%d in %v", attempt, c.cfg.MaxRetries, delay)
		time.Sleep(delay)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return false
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.dialAndJoin(ctx)
		cancel()
		if err == nil {
			// Close may have landed while the dial was in flight. The
			// fresh connection already joined the room, so it must leave
			// again or it lingers as a phantom subscriber.
			c.mu.Lock()
			if c.closed {
				conn := c.conn
				c.conn = nil
				c.mu.Unlock()
				if conn != nil {
					conn.WriteJSON(ws.Event{Type: ws.EventLeaveMindTalk})
					conn.Close()
				}
				return false
			}
			c.mu.Unlock()
			c.setState(StateConnected)
			return true
		}
		log.Printf("Reconnect attempt %d failed: %v", attempt, err)
	}

	c.setState(StateUnavailable)
	return false
}

// backoffFor grows linearly from base up to the ceiling: 1s, 2s, 3s,
// 4s, 5s with the defaults.
func backoffFor(attempt int, base, max time.Duration) time.Duration {
	d := time.Duration(attempt) * base
	if d > max {
		d = max
	}
	return d
}

type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Client) handle(data []byte) {
	var event inboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("Dropping malformed event: %v", err)
		return
	}

	switch event.Type {
	case ws.EventNewPost, ws.EventPostUpdated:
		var post models.Post
		if err := json.Unmarshal(event.Payload, &post); err != nil {
			log.Printf("Dropping malformed %s payload: %v", event.Type, err)
			return
		}
		c.feed.ApplyServer(post)
	case ws.EventPostDeleted:
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("Dropping malformed %s payload: %v", event.Type, err)
			return
		}
		c.feed.ApplyDelete(payload.ID)
	case ws.EventConnected:
		// Handshake ack, nothing to reconcile.
	default:
		log.Printf("Ignoring unknown event %q", event.Type)
	}
}

// Close leaves the room and tears the transport down. The client must
// not linger as a phantom subscriber after the host navigates away.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.WriteJSON(ws.Event{Type: ws.EventLeaveMindTalk})
		conn.Close()
	}
	c.setState(StateDisconnected)
}

// Done is closed when the read loop exits for good (explicit Close or
// retry exhaustion).
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Refresh replaces the feed with a fresh authoritative list. This is
// the catch-up path for events missed while disconnected: the hub
// never replays history.
func (c *Client) Refresh(ctx context.Context) error {
	posts, err := c.cfg.API.GetPosts(ctx)
	if err != nil {
		return err
	}
	c.feed.Replace(posts)
	return nil
}

// CreatePost submits a post and inserts the canonical result. The
// matching new-post broadcast is a duplicate full replace, so no
// double entry appears.
func (c *Client) CreatePost(ctx context.Context, text, category string, anonymous bool) (*models.Post, error) {
	post, err := c.cfg.API.CreatePost(ctx, text, category, anonymous)
	if err != nil {
		return nil, err
	}
	c.feed.ApplyServer(*post)
	return post, nil
}

// React applies the reaction optimistically, then reconciles with the
// authoritative response. On failure the optimistic delta is rolled
// back.
func (c *Client) React(ctx context.Context, postID, rtype string) error {
	normalized, err := models.NormalizeReactionType(rtype)
	if err != nil {
		return err
	}

	err = c.feed.BeginMutation(postID, func(p *models.Post) {
		p.Reactions = models.ReplaceReaction(p.Reactions, c.cfg.UserID, normalized)
	})
	if err != nil {
		return err
	}

	post, err := c.cfg.API.React(ctx, postID, normalized)
	if err != nil {
		c.feed.Rollback(postID)
		return err
	}
	c.feed.ApplyServer(*post)
	return nil
}

// Comment appends optimistically, then reconciles like React.
func (c *Client) Comment(ctx context.Context, postID, text string) error {
	if err := models.ValidateCommentText(text); err != nil {
		return err
	}

	err := c.feed.BeginMutation(postID, func(p *models.Post) {
		p.Comments = append(p.Comments, models.Comment{
			UserID:    c.cfg.UserID,
			Text:      text,
			CreatedAt: time.Now().Unix(),
		})
	})
	if err != nil {
		return err
	}

	post, err := c.cfg.API.Comment(ctx, postID, text)
	if err != nil {
		c.feed.Rollback(postID)
		return err
	}
	c.feed.ApplyServer(*post)
	return nil
}
