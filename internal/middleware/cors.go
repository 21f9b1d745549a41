package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the dashboard origins to call the API with credentials.
// A "*" entry opens the API to every origin without credentials; an
// empty list refuses every cross-origin request.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Hub-Signature-256"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}

	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
		return cors.New(cfg)
	}

	cfg.AllowOrigins = origins
	cfg.AllowWildcard = true
	cfg.AllowCredentials = true
	return cors.New(cfg)
}
