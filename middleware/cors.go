package middleware

import (
	"strings"
	"time"

	"cngflow/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept"}
)

func SetupCORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := make([]string, 0)
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowedOrigins = append(allowedOrigins, o)
		}
	}

	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		return cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		})
	}

	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}
