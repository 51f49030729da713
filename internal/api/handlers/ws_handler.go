package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zgai/chatlibrary/internal/services"
	"github.com/zgai/chatlibrary/internal/utils"
)

// WSHandler serves chat over a WebSocket for clients that prefer a duplex
// connection to SSE. Each incoming message is one chat turn.
type WSHandler struct {
	svc      services.ChatService
	upgrader websocket.Upgrader
}

func NewWSHandler(svc services.ChatService) *WSHandler {
	return &WSHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsChatRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversation_id"`
}

type wsChatEvent struct {
	Type           string `json:"type"` // chunk|done|error
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Message        string `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) ChatWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote a response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}

		var req wsChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = wc.writeJSON(wsChatEvent{Type: "error", Message: "invalid json"})
			continue
		}

		chunks, errs, err := h.svc.Chat(ctx, req.Prompt, req.ConversationID, userID)
		if err != nil {
			msg := "chat failed"
			if ae, ok := err.(*utils.AppError); ok {
				msg = ae.Message
			}
			_ = wc.writeJSON(wsChatEvent{Type: "error", ConversationID: req.ConversationID, Message: msg})
			continue
		}

		for chunk := range chunks {
			if werr := wc.writeJSON(wsChatEvent{Type: "chunk", ConversationID: req.ConversationID, Content: chunk}); werr != nil {
				cancel()
				return
			}
		}
		var serr error
		select {
		case serr = <-errs:
		default:
		}
		if serr != nil {
			_ = wc.writeJSON(wsChatEvent{Type: "error", ConversationID: req.ConversationID, Message: serr.Error()})
			continue
		}
		_ = wc.writeJSON(wsChatEvent{Type: "done", ConversationID: req.ConversationID})
	}
}
