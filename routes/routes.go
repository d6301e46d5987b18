package routes

import (
	"net/http"

	"lancehub/auth"
	"lancehub/chats"
	"lancehub/escrow"
	"lancehub/jobs"
	"lancehub/live"
	"lancehub/middleware"
	"lancehub/notify"
	"lancehub/orders"
	"lancehub/profile"
	"lancehub/proposals"
	"lancehub/ratelim"
	"lancehub/reviews"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/uploads/*filepath", http.Dir("static/uploads"))
}

func AddAuthRoutes(router *httprouter.Router, h *auth.Handlers, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(h.Register))
	router.POST("/api/auth/login", rl.Limit(h.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(h.Logout))
	router.POST("/api/auth/token/refresh", rl.Limit(h.RefreshToken))
}

func AddJobRoutes(router *httprouter.Router, h *jobs.Handlers, rl *ratelim.RateLimiter) {
	asClient := middleware.Chain(middleware.Authenticate, middleware.RequireRoles("client"))

	router.GET("/api/jobs", middleware.OptionalAuth(h.List))
	router.POST("/api/jobs", rl.Limit(asClient(h.Create)))
	router.GET("/api/jobs/:jobid", middleware.OptionalAuth(h.Get))
	router.POST("/api/jobs/:jobid/complete", rl.Limit(asClient(h.Complete)))
}

func AddProposalRoutes(router *httprouter.Router, h *proposals.Handlers, rl *ratelim.RateLimiter) {
	router.POST("/api/jobs/:jobid/applications", rl.Limit(middleware.Authenticate(h.Submit)))
	router.GET("/api/jobs/:jobid/applications", middleware.Authenticate(h.ListForJob))
	router.PUT("/api/applications/:id/status", rl.Limit(middleware.Authenticate(h.UpdateStatus)))
	router.POST("/api/applications/:id/withdraw", rl.Limit(middleware.Authenticate(h.Withdraw)))
	router.GET("/api/applications", middleware.Authenticate(h.ListOwn))
}

func AddEscrowRoutes(router *httprouter.Router, h *escrow.Handlers, rl *ratelim.RateLimiter) {
	router.POST("/api/web3/create-escrow", rl.Limit(middleware.Authenticate(escrow.Idempotency(h.CreateEscrow))))
	router.POST("/api/web3/release-funds", rl.Limit(middleware.Authenticate(escrow.Idempotency(h.ReleaseFunds))))
	router.GET("/api/escrow/:jobid", middleware.Authenticate(h.GetByJob))
	router.GET("/api/escrow/:jobid/receipt", middleware.Authenticate(h.Receipt))
}

func AddOrderRoutes(router *httprouter.Router, h *orders.Handlers, rl *ratelim.RateLimiter) {
	router.POST("/api/orders", rl.Limit(middleware.Authenticate(h.Dispatch)))
}

func AddNotificationRoutes(router *httprouter.Router, h *notify.Handlers) {
	router.GET("/api/notifications", middleware.Authenticate(h.List))
	router.GET("/api/notifications/unread/count", middleware.Authenticate(h.UnreadCount))
	router.PUT("/api/notifications/:id/read", middleware.Authenticate(h.MarkRead))
}

func AddChatRoutes(router *httprouter.Router, h *chats.Handlers, rl *ratelim.RateLimiter) {
	router.GET("/api/chats", middleware.Authenticate(h.ListConversations))
	router.GET("/api/chats/:conversationid/messages", middleware.Authenticate(h.ListMessages))
	router.POST("/api/chats/:conversationid/messages", rl.Limit(middleware.Authenticate(h.PostMessage)))
}

func AddProfileRoutes(router *httprouter.Router, h *profile.Handlers, rv *reviews.Handlers, rl *ratelim.RateLimiter) {
	router.GET("/api/profile", middleware.Authenticate(h.GetOwn))
	router.PUT("/api/profile", rl.Limit(middleware.Authenticate(h.Update)))
	router.GET("/api/users/:userid", middleware.OptionalAuth(h.GetPublic))
	router.GET("/api/users/:userid/portfolio", middleware.OptionalAuth(h.ListPortfolio))
	router.GET("/api/users/:userid/reviews", middleware.OptionalAuth(rv.ListForUser))
}

func AddLiveRoutes(router *httprouter.Router, hub *live.Hub) {
	router.GET("/ws/notifications", live.WebSocketHandler(hub))
}
