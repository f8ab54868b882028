package app

import (
	"fmt"

	httpMW "github.com/yungbote/ordersignal-backend/internal/http/middleware"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) (Middleware, error) {
	log.Info("Wiring middleware...")
	auth, err := httpMW.NewAuthMiddleware(log, cfg.JWTSecret)
	if err != nil {
		return Middleware{}, fmt.Errorf("init auth middleware (JWT_SECRET): %w", err)
	}
	if cfg.InternalAPIKey == "" {
		log.Warn("INTERNAL_API_KEY not set; internal routes are unauthenticated")
	}
	return Middleware{Auth: auth}, nil
}
