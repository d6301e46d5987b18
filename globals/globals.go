package globals

import (
	"context"
	"os"
)

var (
	JwtSecret = []byte(getenv("JWT_SECRET", "change_me_in_production"))

	// ExplorerBaseURL is prepended to tx hashes in escrow notifications.
	ExplorerBaseURL = getenv("EXPLORER_BASE_URL", "https://polygonscan.com/tx/")

	// Production controls whether error details leak into responses.
	Production = os.Getenv("APP_ENV") == "production"
)

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"

var Ctx = context.Background()

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
