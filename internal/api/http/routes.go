package http

import "github.com/gin-gonic/gin"

// Register wires every route onto the router.
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/screen", h.Screen)
	router.GET("/apps", h.Apps)

	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions", h.ListSessions)
	router.GET("/sessions/:id", h.GetSession)
	router.DELETE("/sessions/:id", h.DestroySession)
	router.PUT("/sessions/:id/recovery", h.SetRecovery)
	router.POST("/sessions/:id/refresh", h.RefreshSession)

	router.POST("/sessions/:id/elements/at", h.ElementAt)
	router.POST("/sessions/:id/elements/xpath", h.ElementByXPath)
	router.POST("/sessions/:id/resolve", h.ResolveHandle)
	router.POST("/sessions/:id/act", h.ActOnHandle)
	router.POST("/sessions/:id/activate", h.Activate)
	router.POST("/sessions/:id/query", h.Query)
}
