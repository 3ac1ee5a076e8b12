package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rubihq/chat-sync/internal/chat"
	"github.com/rubihq/chat-sync/internal/config"
	"github.com/rubihq/chat-sync/internal/models"
	"github.com/rubihq/chat-sync/pkg/util"
)

const (
	joinTimeout  = 10 * time.Second
	joinAttempts = 3
)

// Ensure Client implements the change stream contract of the core.
var _ chat.ChangeStream = (*Client)(nil)

// Client opens scoped subscriptions over the platform's realtime websocket.
// One subscription owns one connection carrying both the row-change feed and
// the presence channel for its scope.
type Client struct {
	conf       config.RealtimeConfig
	apiKey     string
	dialer     *websocket.Dialer
	reconnects prometheus.Counter
}

func NewClient(conf *config.Config) (*Client, error) {
	reconnects, err := util.GetCounter("realtime_reconnects")
	if err != nil {
		return nil, fmt.Errorf("get counter: %w", err)
	}
	return &Client{
		conf:       conf.Realtime,
		apiKey:     conf.Platform.APIKey,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reconnects: reconnects,
	}, nil
}

// Subscribe joins the scope's topic and starts delivering events to the
// handlers. The returned subscription stays live across transport drops: it
// reconnects with backoff, rejoins, retransmits the last tracked presence
// state (the server retains nothing across a drop) and then signals
// OnReconnect so the consumer can reseed.
func (c *Client) Subscribe(ctx context.Context, scope models.Scope, h chat.StreamHandlers) (chat.Subscription, error) {
	s := &subscription{
		client:   c,
		scope:    scope,
		handlers: h,
		topic:    topicForScope(scope),
	}

	conn, err := s.joinWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", s.topic, err)
	}
	s.setConn(conn)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)
	go s.heartbeatLoop(runCtx)
	return s, nil
}

func topicForScope(scope models.Scope) string {
	if scope.RoomID == "" {
		return "realtime:room:default"
	}
	return "realtime:room:" + scope.RoomID
}

type subscription struct {
	client   *Client
	scope    models.Scope
	handlers chat.StreamHandlers
	topic    string
	cancel   context.CancelFunc
	refSeq   atomic.Uint64

	mu        sync.Mutex
	conn      *websocket.Conn
	lastTrack *trackPayload
	closed    bool

	writeMu sync.Mutex
}

// Track publishes the local participant's state to the presence channel and
// remembers it for retransmission after a reconnect.
func (s *subscription) Track(ctx context.Context, state models.PresenceState) error {
	payload := trackPayload{
		UserID:    state.UserID,
		IsTyping:  state.IsTyping,
		UpdatedAt: state.UpdatedAt,
	}
	s.mu.Lock()
	s.lastTrack = &payload
	s.mu.Unlock()
	return s.push(eventTrack, payload)
}

// Unsubscribe leaves the topic and stops the subscription for good. Safe to
// call more than once.
func (s *subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if conn != nil {
		// Best effort: the connection is going away either way.
		_ = s.writeFrame(conn, frame{Topic: s.topic, Event: eventLeave, Ref: s.nextRef()})
		conn.Close()
	}
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *subscription) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *subscription) currentConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// run reads frames until the transport drops, then reconnects with backoff
// and tells the consumer about the gap.
func (s *subscription) run(ctx context.Context) {
	for {
		s.readLoop(ctx)
		if ctx.Err() != nil || s.isClosed() {
			return
		}

		log.Warnw(ctx, "realtime connection lost, reconnecting", "topic", s.topic)
		conn, err := s.redial(ctx)
		if err != nil {
			return
		}
		s.setConn(conn)
		s.client.reconnects.Inc()

		s.mu.Lock()
		lastTrack := s.lastTrack
		s.mu.Unlock()
		if lastTrack != nil {
			if err := s.push(eventTrack, *lastTrack); err != nil {
				log.Warnw(ctx, "presence retrack failed", "error", err)
			}
		}
		if s.handlers.OnReconnect != nil {
			s.handlers.OnReconnect()
		}
	}
}

func (s *subscription) readLoop(ctx context.Context) {
	conn := s.currentConn()
	if conn == nil {
		return
	}
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() == nil && !s.isClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnw(ctx, "realtime read error", "topic", s.topic, "error", err)
			}
			return
		}
		s.dispatch(ctx, f)
	}
}

func (s *subscription) dispatch(ctx context.Context, f frame) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw(ctx, "PANIC RECOVER", "event", f.Event, "panic", fmt.Sprintf("%+v", r))
		}
	}()

	switch f.Event {
	case eventChanges:
		s.dispatchChange(ctx, f.Payload)
	case eventPresenceState:
		var state presenceStatePayload
		if err := json.Unmarshal(f.Payload, &state); err != nil {
			log.Warnw(ctx, "bad presence payload", "error", err)
			return
		}
		if s.handlers.OnPresence != nil {
			s.handlers.OnPresence(state.toModel())
		}
	case eventReply, eventHeartbeat:
		// Replies to our own pushes and heartbeat acks need no handling.
	default:
		log.Debugw(ctx, "ignoring realtime event", "event", f.Event)
	}
}

func (s *subscription) dispatchChange(ctx context.Context, payload json.RawMessage) {
	var change changesPayload
	if err := json.Unmarshal(payload, &change); err != nil {
		log.Warnw(ctx, "bad change payload", "error", err)
		return
	}

	switch change.Data.Table {
	case tableMessages:
		var row messageRow
		if err := json.Unmarshal(change.Data.Record, &row); err != nil {
			log.Warnw(ctx, "bad message record", "error", err)
			return
		}
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(models.MessageChange{Op: change.Data.Type, Message: row.toModel()})
		}
	case tableReactions:
		var row reactionRow
		if err := json.Unmarshal(change.Data.Record, &row); err != nil {
			log.Warnw(ctx, "bad reaction record", "error", err)
			return
		}
		if s.handlers.OnReaction != nil {
			s.handlers.OnReaction(models.ReactionChange{Op: change.Data.Type, Reaction: row.toModel()})
		}
	default:
		log.Debugw(ctx, "change for unknown table", "table", change.Data.Table)
	}
}

// joinWithRetry gives the initial join the same redial posture as an
// established subscription, but bounded: the caller needs a timely answer to
// decide whether the scope is degraded.
func (s *subscription) joinWithRetry(ctx context.Context) (*websocket.Conn, error) {
	wait := s.client.conf.ReconnectMinWait
	var lastErr error
	for attempt := 1; attempt <= joinAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		conn, err := s.dialAndJoin(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Warnw(ctx, "realtime join failed", "topic", s.topic, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

func (s *subscription) redial(ctx context.Context) (*websocket.Conn, error) {
	wait := s.client.conf.ReconnectMinWait
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if s.isClosed() {
			return nil, errors.New("subscription closed")
		}

		conn, err := s.dialAndJoin(ctx)
		if err == nil {
			return conn, nil
		}
		log.Warnw(ctx, "realtime redial failed", "topic", s.topic, "wait", wait, "error", err)

		wait *= 2
		if wait > s.client.conf.ReconnectMaxWait {
			wait = s.client.conf.ReconnectMaxWait
		}
	}
}

// dialAndJoin opens a connection and completes the join handshake for the
// scope's topic, synchronously waiting for the ok reply.
func (s *subscription) dialAndJoin(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.client.apiKey)
	conn, resp, err := s.client.dialer.DialContext(ctx, s.client.conf.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	join := joinPayload{
		Config: joinConfig{
			PostgresChanges: []changesConfig{
				{Event: string(models.ChangeInsert), Schema: "public", Table: tableMessages, Filter: roomFilter(s.scope)},
				{Event: "*", Schema: "public", Table: tableReactions, Filter: roomFilter(s.scope)},
			},
		},
	}
	payload, err := json.Marshal(join)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("marshal join: %w", err)
	}
	joinFrame := frame{Topic: s.topic, Event: eventJoin, Payload: payload, Ref: s.nextRef()}
	if err := s.writeFrame(conn, joinFrame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write join: %w", err)
	}

	// The reply is the first frame on a fresh connection.
	if err := conn.SetReadDeadline(time.Now().Add(joinTimeout)); err != nil {
		conn.Close()
		return nil, err
	}
	var reply frame
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read join reply: %w", err)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, err
	}

	if reply.Event != eventReply {
		conn.Close()
		return nil, fmt.Errorf("unexpected join response event %q", reply.Event)
	}
	var status replyPayload
	if err := json.Unmarshal(reply.Payload, &status); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode join reply: %w", err)
	}
	if status.Status != "ok" {
		conn.Close()
		return nil, fmt.Errorf("join rejected: %s", status.Status)
	}
	return conn, nil
}

func roomFilter(scope models.Scope) string {
	if scope.RoomID == "" {
		return "room_id=is.null"
	}
	return "room_id=eq." + scope.RoomID
}

func (s *subscription) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.client.conf.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb := frame{Topic: heartbeatTopic, Event: eventHeartbeat, Ref: s.nextRef()}
			if conn := s.currentConn(); conn != nil {
				// A failed heartbeat surfaces as a read error in the run loop.
				_ = s.writeFrame(conn, hb)
			}
		}
	}
}

func (s *subscription) push(event string, payload any) error {
	conn := s.currentConn()
	if conn == nil {
		return errors.New("no connection")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	return s.writeFrame(conn, frame{Topic: s.topic, Event: event, Payload: data, Ref: s.nextRef()})
}

// writeFrame serializes concurrent writers; gorilla allows one writer at a
// time per connection.
func (s *subscription) writeFrame(conn *websocket.Conn, f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(f)
}

func (s *subscription) nextRef() string {
	return strconv.FormatUint(s.refSeq.Add(1), 10)
}
