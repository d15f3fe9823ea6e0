package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type Room struct {
	documentID string
	clients    map[string]*Client // clientID -> client
	presence   *PresenceManager
}

func NewRoom(documentID string) *Room {
	return &Room{
		documentID: documentID,
		clients:    make(map[string]*Client),
		presence:   NewPresenceManager(),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // documentID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// shutdown closes every client's send queue, which ends its write pump and
// the connection with it.
func (h *Hub) shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.closeSend()
		}
		delete(h.rooms, id)
	}
}

// Register adds client to its document's room. It returns false once the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		room = NewRoom(client.DocumentID)
		h.rooms[client.DocumentID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	// Joined before the welcome so a client that has been welcomed is
	// already listed.
	joined := room.presence.Join(Viewer{UserID: client.UserID, DisplayName: client.DisplayName})

	client.Send(newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID}))
	client.Send(room.presence.StateMessage())
	if joined {
		msg := newMessage(TypePresenceJoin, Viewer{UserID: client.UserID, DisplayName: client.DisplayName})
		msg.UserID = client.UserID
		h.broadcastToRoom(client.DocumentID, msg, client.ClientID)
	}

	slog.Info("client joined", "user", client.UserID, "document", client.DocumentID, "client", client.ClientID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	left := room.presence.Leave(client.UserID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.DocumentID)
	}
	h.mu.Unlock()

	if left {
		msg := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
		msg.UserID = client.UserID
		h.broadcastToRoom(client.DocumentID, msg, "")
	}

	slog.Info("client left", "user", client.UserID, "document", client.DocumentID, "client", client.ClientID)
}

// BroadcastSaved tells every subscriber of documentID except the writer that
// new content was saved.
func (h *Hub) BroadcastSaved(documentID string, revision int, content []byte, writerClientID string) {
	if !json.Valid(content) {
		slog.Warn("skip broadcast of invalid content", "document", documentID)
		return
	}
	msg := newMessage(TypeDocSaved, SavedPayload{Revision: revision, Content: content})
	msg.DocumentID = documentID
	msg.ClientID = writerClientID
	h.broadcastToRoom(documentID, msg, writerClientID)
}

// Viewers lists who has documentID open.
func (h *Hub) Viewers(documentID string) []Viewer {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return room.presence.Viewers()
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	// Editors only listen.
	slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	sender.Send(newMessage(TypeError, ErrorPayload{Message: "unsupported message type " + msg.Type}))
}

func (h *Hub) broadcastToRoom(documentID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
