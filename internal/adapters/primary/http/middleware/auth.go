package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"site-deploy-service/internal/adapters/primary/http/dto"
	"site-deploy-service/internal/adapters/primary/http/session"
	"site-deploy-service/internal/core/domain"
)

const userKey = "user"

type UserResolver interface {
	CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// RequireUser aborts with 403 unless the session names an existing user.
// The resolved user is available to later handlers through CurrentUser.
func RequireUser(sessions *session.Manager, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessions.UserID(c.Request)
		if !ok {
			abortNotAuthenticated(c)
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotAuthenticated) {
				abortNotAuthenticated(c)
				return
			}
			log.WithError(err).Error("resolve session user failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error: "internal server error",
				Code:  dto.CodeUnexpected,
			})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user set by RequireUser, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

func abortNotAuthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
		Error: domain.ErrNotAuthenticated.Error(),
		Code:  dto.CodeNotAuthenticated,
	})
}
