package http

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/circulation/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	profiles *database.ProfilesDatabase
	version  string
}

func NewHealthController(profiles *database.ProfilesDatabase, version string) *HealthController {
	return &HealthController{
		profiles: profiles,
		version:  version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.profiles != nil {
		if info, err := os.Stat(h.profiles.Directory()); err != nil {
			checks["profiles"] = "error: " + err.Error()
			status = "unhealthy"
		} else if !info.IsDir() {
			checks["profiles"] = "error: root is not a directory"
			status = "unhealthy"
		} else {
			checks["profiles"] = "ok"
		}
	} else {
		checks["profiles"] = "not configured"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
