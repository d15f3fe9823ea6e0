package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestPresenceCountsConnections(t *testing.T) {
	pm := NewPresenceManager()
	if !pm.Join(Viewer{UserID: "user_b", DisplayName: "B"}) {
		t.Error("first join not reported")
	}
	if pm.Join(Viewer{UserID: "user_b", DisplayName: "B"}) {
		t.Error("second tab reported as a new viewer")
	}
	pm.Join(Viewer{UserID: "user_a", DisplayName: "A"})

	got := pm.Viewers()
	if len(got) != 2 || got[0].UserID != "user_a" || got[1].UserID != "user_b" {
		t.Errorf("Viewers = %+v", got)
	}
	if pm.Leave("user_b") {
		t.Error("leave reported while a tab remains")
	}
	if !pm.Leave("user_b") {
		t.Error("last leave not reported")
	}
	if pm.Leave("user_missing") {
		t.Error("unknown user left")
	}
}

type received struct {
	documentID string
	revision   int
	content    string
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		user := r.URL.Query().Get("token")
		hub.Serve(r.Context(), conn, user, strings.ToUpper(user), "doc_1")
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func subscribe(t *testing.T, url, token string) (*Subscriber, <-chan received) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	welcome := make(chan string, 1)
	saved := make(chan received, 4)
	sub, err := Dial(ctx, SubscriberConfig{
		URL:       url,
		Token:     token,
		OnWelcome: func(id string) { welcome <- id },
		OnSaved: func(doc string, rev int, content []byte) {
			saved <- received{doc, rev, string(content)}
		},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	runCtx, stop := context.WithCancel(context.Background())
	go sub.Run(runCtx)
	t.Cleanup(func() {
		stop()
		sub.Close()
	})

	select {
	case id := <-welcome:
		if id == "" || sub.ClientID() != id {
			t.Fatalf("client id = %q / %q", id, sub.ClientID())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no welcome")
	}
	return sub, saved
}

func TestBroadcastSavedSkipsWriter(t *testing.T) {
	hub, url := startHub(t)
	writer, writerSaved := subscribe(t, url, "user_w")
	_, readerSaved := subscribe(t, url, "user_r")

	hub.BroadcastSaved("doc_1", 2, []byte(`{"objects":[]}`), writer.ClientID())

	select {
	case got := <-readerSaved:
		if got.documentID != "doc_1" || got.revision != 2 || got.content != `{"objects":[]}` {
			t.Errorf("reader got %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not receive the save")
	}

	// A broadcast with no writer reaches everyone; the writer's first
	// message must be this one, not the earlier save.
	hub.BroadcastSaved("doc_1", 3, []byte(`{"objects":[],"viewport":{"zoom":2}}`), "")
	select {
	case got := <-writerSaved:
		if got.revision != 3 {
			t.Errorf("writer got revision %d, want 3", got.revision)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("writer did not receive the second save")
	}

	if viewers := hub.Viewers("doc_1"); len(viewers) != 2 {
		t.Errorf("viewers = %+v, want 2", viewers)
	}
}

func TestBroadcastSavedRejectsInvalidContent(t *testing.T) {
	hub, url := startHub(t)
	_, saved := subscribe(t, url, "user_r")

	hub.BroadcastSaved("doc_1", 1, []byte("{not json"), "")
	hub.BroadcastSaved("doc_1", 2, []byte(`{}`), "")
	select {
	case got := <-saved:
		if got.revision != 2 {
			t.Errorf("revision = %d, want 2", got.revision)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no save received")
	}
}

func TestHubShutdownClosesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(r.Context(), conn, "user_a", "A", "doc_1")
	}))
	defer srv.Close()

	welcome := make(chan string, 1)
	sub, err := Dial(context.Background(), SubscriberConfig{
		URL:       "ws" + strings.TrimPrefix(srv.URL, "http"),
		OnWelcome: func(id string) { welcome <- id },
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	runErr := make(chan error, 1)
	go func() { runErr <- sub.Run(context.Background()) }()
	select {
	case <-welcome:
	case <-time.After(5 * time.Second):
		t.Fatal("no welcome")
	}

	cancel()
	<-stopped
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run after shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber still connected after hub shutdown")
	}

	if hub.Register(NewClient(hub, nil, "user_b", "B", "doc_1")) {
		t.Error("Register succeeded on a stopped hub")
	}
}

func TestSubscriberTracksPresence(t *testing.T) {
	_, url := startHub(t)
	first, _ := subscribe(t, url, "user_a")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	updates := make(chan []Viewer, 4)
	second, err := Dial(ctx, SubscriberConfig{
		URL:        url,
		Token:      "user_b",
		OnPresence: func(v []Viewer) { updates <- v },
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer second.Close()
	go second.Run(ctx)

	next := func() []Viewer {
		t.Helper()
		select {
		case v := <-updates:
			return v
		case <-time.After(5 * time.Second):
			t.Fatal("no presence update")
			return nil
		}
	}
	ids := func(vs []Viewer) string {
		var out []string
		for _, v := range vs {
			out = append(out, v.UserID+":"+v.DisplayName)
		}
		return strings.Join(out, ",")
	}

	if got := ids(next()); got != "user_a:USER_A,user_b:USER_B" {
		t.Fatalf("initial viewers = %q", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for ids(first.Viewers()) != "user_a:USER_A,user_b:USER_B" {
		if time.Now().After(deadline) {
			t.Fatalf("first subscriber viewers = %q", ids(first.Viewers()))
		}
		time.Sleep(10 * time.Millisecond)
	}

	first.Close()
	if got := ids(next()); got != "user_b:USER_B" {
		t.Errorf("viewers after leave = %q", got)
	}
}
