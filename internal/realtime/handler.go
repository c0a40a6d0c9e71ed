package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"
)

// Authorizer resolves an access token to a user id.
type Authorizer interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// clientFrame is what subscribers send upstream.
type clientFrame struct {
	Action string          `json:"action"`
	Topic  string          `json:"topic"`
	Data   json.RawMessage `json:"data"`
}

// NewHandler creates the WebSocket endpoint for the hub. Connections must
// present a token resolvable by the authorizer; on success the peer is
// subscribed to its own notification stream and may subscribe to further
// topics or relay on the typing/status topics.
func NewHandler(hub *Hub, authorizer Authorizer) http.Handler {
	mux := http.NewServeMux()

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		userID, _ := conn.Request().Context().Value(wsUserIDContextKey{}).(string)
		handleConn(conn, hub, userID)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if authorizer == nil {
			http.Error(w, "websocket auth is not configured", http.StatusServiceUnavailable)
			return
		}

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		userID, err := authorizer.Authenticate(r.Context(), token)
		if err != nil || strings.TrimSpace(userID) == "" {
			if err != nil {
				log.Printf("realtime: websocket unauthorized: remote=%s err=%v", r.RemoteAddr, err)
			}
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), wsUserIDContextKey{}, strings.TrimSpace(userID))
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})

	return mux
}

type wsUserIDContextKey struct{}

func handleConn(conn *websocket.Conn, hub *Hub, userID string) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("realtime: close websocket: %v", err)
		}
	}()

	p := newPeer(json.NewEncoder(conn))
	defer hub.drop(p)

	// Every authenticated connection listens on its own inbox stream.
	hub.subscribe(p, UserNotifications(userID))

	decoder := json.NewDecoder(conn)
	for {
		var frame clientFrame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("realtime: read websocket frame: %v", err)
			}
			return
		}

		topic := strings.TrimSpace(frame.Topic)
		if topic == "" {
			continue
		}

		switch frame.Action {
		case "subscribe":
			hub.subscribe(p, topic)
		case "unsubscribe":
			hub.unsubscribe(p, topic)
		case "publish":
			// Clients may only relay on the passthrough topics; engine
			// streams are publish-only from the server side.
			if !isRelayTopic(topic) {
				continue
			}
			if err := hub.Publish(topic, frame.Data); err != nil {
				log.Printf("realtime: relay %s: %v", topic, err)
			}
		}
	}
}

func isRelayTopic(topic string) bool {
	if topic == TopicUserStatus {
		return true
	}
	return strings.HasPrefix(topic, "task/") && strings.HasSuffix(topic, "/typing")
}
