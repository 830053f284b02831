package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/readx/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Frame types pushed to websocket clients.
const (
	FrameLibrary  = "library"
	FrameComments = "comments"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Frame is one websocket push.
type Frame[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

func (a *API) streamLibrary(w http.ResponseWriter, r *http.Request) {
	_, lib, err := a.library(r)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	stream(w, r, a.logger, FrameLibrary, func(ctx context.Context) (<-chan []models.LibraryEntry, func(), error) {
		updates := make(chan []models.LibraryEntry, 1)
		push := func(entries []models.LibraryEntry) {
			entries = orEmpty(entries)
			for {
				select {
				case updates <- entries:
					return
				default:
				}
				// Keep only the newest snapshot.
				select {
				case <-updates:
				default:
				}
			}
		}
		push(lib.store.Entries())
		cancel := lib.store.OnChange(push)
		return updates, cancel, nil
	})
}

func (a *API) streamComments(w http.ResponseWriter, r *http.Request) {
	bookID := r.PathValue("id")
	stream(w, r, a.logger, FrameComments, func(ctx context.Context) (<-chan []models.Comment, func(), error) {
		ch, err := a.comments.Subscribe(ctx, bookID)
		return ch, func() {}, err
	})
}

// stream upgrades the connection and writes every snapshot from subscribe as a [Frame] until
// the client goes away or the channel closes.
func stream[T any](w http.ResponseWriter, r *http.Request, logger *log.Logger, kind string, subscribe func(context.Context) (<-chan T, func(), error)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	updates, unsubscribe, err := subscribe(ctx)
	if err != nil {
		logger.Error("websocket subscribe failed", "path", r.URL.Path, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}
	defer unsubscribe()

	go readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(Frame[T]{Type: kind, Data: snapshot}); err != nil {
				logger.Debug("websocket write failed", "path", r.URL.Path, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and cancels once the peer stops answering pings or closes.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
