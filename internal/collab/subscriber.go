package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"

	"github.com/coder/websocket"
)

type SubscriberConfig struct {
	// URL is the document's websocket endpoint, ws:// or wss://.
	URL string
	// Token is sent as a query parameter; browsers cannot set headers on a
	// websocket handshake.
	Token string

	OnWelcome func(clientID string)
	// OnSaved receives content saved by another writer.
	OnSaved func(documentID string, revision int, content []byte)
	// OnPresence receives the full viewer list whenever someone opens or
	// closes the document.
	OnPresence func(viewers []Viewer)
	Logger     *slog.Logger
}

// Subscriber is the editor side of the hub: it listens for saves of one
// document.
type Subscriber struct {
	cfg  SubscriberConfig
	conn *websocket.Conn

	mu       sync.Mutex
	clientID string
	viewers  map[string]Viewer
}

func Dial(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse subscriber url: %w", err)
	}
	if cfg.Token != "" {
		q := u.Query()
		q.Set("token", cfg.Token)
		u.RawQuery = q.Encode()
	}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	conn.SetReadLimit(maxMsgSize)
	return &Subscriber{cfg: cfg, conn: conn, viewers: make(map[string]Viewer)}, nil
}

// ClientID is the id the hub assigned, empty until the welcome arrives.
func (s *Subscriber) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// Viewers returns who else has the document open, ordered by user id. The
// subscriber's own user is included.
func (s *Subscriber) Viewers() []Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewersLocked()
}

func (s *Subscriber) viewersLocked() []Viewer {
	out := make([]Viewer, 0, len(s.viewers))
	for _, v := range s.viewers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Run reads until the connection closes or ctx is cancelled. A normal close
// returns nil.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.cfg.Logger.Warn("invalid message", "error", err)
			continue
		}
		s.handle(&msg)
	}
}

func (s *Subscriber) handle(msg *Message) {
	switch msg.Type {
	case TypeWelcome:
		var p WelcomePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.cfg.Logger.Warn("invalid welcome", "error", err)
			return
		}
		s.mu.Lock()
		s.clientID = p.ClientID
		s.mu.Unlock()
		if s.cfg.OnWelcome != nil {
			s.cfg.OnWelcome(p.ClientID)
		}
	case TypeDocSaved:
		var p SavedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.cfg.Logger.Warn("invalid saved payload", "error", err)
			return
		}
		if s.cfg.OnSaved != nil {
			s.cfg.OnSaved(msg.DocumentID, p.Revision, p.Content)
		}
	case TypePresenceState, TypePresenceJoin, TypePresenceLeave:
		s.presence(msg)
	case TypeError:
		s.cfg.Logger.Warn("hub error", "payload", string(msg.Payload))
	default:
		s.cfg.Logger.Debug("ignore message", "type", msg.Type)
	}
}

func (s *Subscriber) presence(msg *Message) {
	s.mu.Lock()
	switch msg.Type {
	case TypePresenceState:
		var p PresenceStatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.mu.Unlock()
			s.cfg.Logger.Warn("invalid presence state", "error", err)
			return
		}
		s.viewers = make(map[string]Viewer, len(p.Viewers))
		for _, v := range p.Viewers {
			s.viewers[v.UserID] = v
		}
	case TypePresenceJoin:
		var v Viewer
		if err := json.Unmarshal(msg.Payload, &v); err != nil || v.UserID == "" {
			s.mu.Unlock()
			s.cfg.Logger.Warn("invalid presence join", "error", err)
			return
		}
		s.viewers[v.UserID] = v
	case TypePresenceLeave:
		var p PresenceLeavePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.mu.Unlock()
			s.cfg.Logger.Warn("invalid presence leave", "error", err)
			return
		}
		delete(s.viewers, p.UserID)
	}
	viewers := s.viewersLocked()
	s.mu.Unlock()

	if s.cfg.OnPresence != nil {
		s.cfg.OnPresence(viewers)
	}
}

func (s *Subscriber) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
