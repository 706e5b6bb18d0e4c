package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/repo"
)

// ContextUserIDKey is the Gin context key under which the authenticated user
// ID is stored by Middleware.
const ContextUserIDKey = "userID"

// Gatekeeper authenticates connections. It verifies the presented bearer
// credential, resolves the embedded user, and rejects banned or missing
// users. Verification happens once per connection or request; it is not
// repeated per message.
type Gatekeeper struct {
	DB     *gorm.DB
	Secret []byte
}

// Authenticate verifies a raw bearer token and returns the bound user ID.
// Absent, invalid, or expired tokens, unknown users, and banned users all
// fail with ErrInvalidToken; the reason is deliberately not distinguished.
func (g *Gatekeeper) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := ValidateToken(g.Secret, token)
	if err != nil {
		return "", ErrInvalidToken
	}
	u, err := repo.GetUser(ctx, g.DB, claims.UserID)
	if err != nil || u.IsBanned {
		return "", ErrInvalidToken
	}
	return u.ID, nil
}

// Middleware returns a Gin middleware enforcing bearer authentication on the
// REST surface. On success the user ID is stored in the context under
// ContextUserIDKey; on failure the request is aborted with 401.
func (g *Gatekeeper) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := g.Authenticate(c.Request.Context(), BearerToken(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "authentication error",
			})
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// BearerToken extracts the credential from a request: the Authorization
// "Bearer" header when present, otherwise the "token" query parameter
// (websocket clients cannot always set headers during the upgrade).
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return r.URL.Query().Get("token")
}
