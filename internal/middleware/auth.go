// ===============================
// internal/middleware/auth.go - Firebase token and admin checks
// ===============================

package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by FirebaseAuth
const (
	ContextUserID        = "userID"
	ContextFirebaseToken = "firebaseToken"
)

// TokenVerifier checks Firebase ID tokens. *services.FirebaseService implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AdminChecker reports whether a user is an admin. *services.UserService implements it.
type AdminChecker interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

// FirebaseAuth verifies "Authorization: Bearer <token>". Websocket upgrades
// may pass the token as ?token= since browsers cannot set headers on them.
func FirebaseAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c)
		if problem != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": problem})
			c.Abort()
			return
		}

		firebaseToken, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, firebaseToken.UID)
		c.Set(ContextFirebaseToken, firebaseToken)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			if token := c.Query("token"); token != "" {
				return token, ""
			}
		}
		return "", "Authorization header required"
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" || tokenParts[1] == "" {
		return "", "Invalid authorization header format"
	}
	return tokenParts[1], ""
}

// AdminOnly requires user_type=admin. It must run after FirebaseAuth.
func AdminOnly(checker AdminChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		isAdmin, err := checker.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			logger.Error("admin check failed", zap.String("uid", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify admin access"})
			c.Abort()
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
