package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zgai/chatlibrary/internal/services"
	"github.com/zgai/chatlibrary/internal/utils"
)

type ChatHandler struct {
	svc services.ChatService
}

func NewChatHandler(svc services.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Prompt         string `json:"prompt" binding:"required"`
	ConversationID string `json:"conversation_id" binding:"required"`
}

// Chat streams the answer as server-sent events. A client disconnect
// cancels the request context and with it the completion stream.
func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Chat", "invalid request body", err))
		return
	}

	chunks, errs, err := h.svc.Chat(c.Request.Context(), req.Prompt, req.ConversationID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-chunks
		if !ok {
			// A stream error is buffered before the fragment channel
			// closes; never block here on the persistence tail.
			select {
			case serr := <-errs:
				if serr != nil {
					c.SSEvent("error", serr.Error())
					return false
				}
			default:
			}
			c.SSEvent("done", "")
			return false
		}
		c.SSEvent("message", chunk)
		return true
	})
}

type NewConversationRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) NewConversation(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req NewConversationRequest
	_ = c.ShouldBindJSON(&req)

	conv, err := h.svc.NewConversation(c.Request.Context(), userID, req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.svc.ListConversations(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": rows})
}

func (h *ChatHandler) History(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	rows, err := h.svc.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": rows})
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	if err := h.svc.DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "conversation deleted"})
}
