package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"site-deploy-service/internal/adapters/primary/http/dto"
)

func (h *Handler) GetVersion(c *gin.Context) {
	deployment, err := h.resolveDeployment(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	version, err := h.lifecycleSvc.GetVersion(c.Request.Context(), deployment, c.Param("version"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToVersionResponse(version))
}

func (h *Handler) UploadVersion(c *gin.Context) {
	h.limitBody(c)

	deployment, err := h.resolveDeployment(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	archive, err := h.openArchive(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	if archive != nil {
		defer archive.Close()
	}

	label := c.Param("version")
	fields := log.Fields{"subdomain": deployment.Subdomain, "version": label}
	version, err := h.lifecycleSvc.NewVersionUpload(c.Request.Context(), deployment, label, asReader(archive))
	if err != nil {
		actor(c, fields).WithError(err).Warn("upload version failed")
		mapDomainError(c, err)
		return
	}

	actor(c, fields).Info("version published")
	c.JSON(http.StatusCreated, dto.ToVersionResponse(version))
}

func (h *Handler) DeleteVersion(c *gin.Context) {
	deployment, err := h.resolveDeployment(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	label := c.Param("version")
	if err := h.lifecycleSvc.DeleteVersion(c.Request.Context(), deployment, label); err != nil {
		mapDomainError(c, err)
		return
	}

	actor(c, log.Fields{"subdomain": deployment.Subdomain, "version": label}).Info("version removed")
	c.JSON(http.StatusOK, dto.OK())
}
