package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/zgai/chatlibrary/internal/api/handlers"
	"github.com/zgai/chatlibrary/internal/api/middleware"
	"github.com/zgai/chatlibrary/internal/auth"
)

type Deps struct {
	Issuer   *auth.TokenIssuer
	User     *handlers.UserHandler
	Document *handlers.DocumentHandler
	Chat     *handlers.ChatHandler
	WS       *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/user/register", d.User.Register)
	r.POST("/user/login", d.User.Login)

	// Protected routes (JWT)
	authed := r.Group("/")
	authed.Use(middleware.JWTAuth(d.Issuer))

	authed.GET("/user/me", d.User.Me)
	authed.PUT("/user/password", d.User.ChangePassword)

	authed.POST("/document/upload", d.Document.Upload)
	authed.GET("/document/list", d.Document.List)
	authed.GET("/document/:id", d.Document.Get)
	authed.GET("/document/preview/:id", d.Document.Preview)
	authed.GET("/document/preview/content/:id", d.Document.PreviewContent)
	authed.DELETE("/document/:id", d.Document.Delete)

	authed.POST("/ai/chat", d.Chat.Chat)
	authed.POST("/ai/conversation", d.Chat.NewConversation)
	authed.GET("/ai/conversations", d.Chat.ListConversations)
	authed.GET("/ai/conversation/history/:id", d.Chat.History)
	authed.DELETE("/ai/conversation/history/:id", d.Chat.DeleteConversation)

	// WebSocket
	authed.GET("/ai/ws/chat", d.WS.ChatWS)
}
