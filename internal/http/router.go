package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/circulation/internal/database"
)

// RouterConfig receives all router dependencies.
type RouterConfig struct {
	Profiles *database.ProfilesDatabase
	Version  string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Profiles, cfg.Version)
	viewsController := NewViewsController(cfg.Profiles)

	router.GET("/health", healthController.Status)

	api := router.Group("/api")
	{
		api.GET("/profiles", viewsController.GetProfiles)
		api.GET("/profiles/current", viewsController.GetCurrentProfile)
		api.GET("/profiles/:id/accounts", viewsController.GetAccounts)
		api.GET("/profiles/:id/accounts/:aid/books", viewsController.GetBooks)
	}

	return router
}
