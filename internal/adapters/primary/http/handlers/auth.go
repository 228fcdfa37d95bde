package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"site-deploy-service/internal/adapters/primary/http/dto"
)

func (h *Handler) Login(c *gin.Context) {
	user, err := h.authSvc.Authenticate(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	if err := h.sessions.Login(c.Writer, c.Request, user.ID); err != nil {
		mapDomainError(c, err)
		return
	}

	log.WithField("username", user.Username).Info("user logged in")
	c.JSON(http.StatusOK, dto.OK())
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Writer, c.Request); err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK())
}
