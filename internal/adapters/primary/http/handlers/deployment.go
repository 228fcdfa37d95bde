package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"site-deploy-service/internal/adapters/primary/http/dto"
	"site-deploy-service/internal/adapters/primary/http/middleware"
	"site-deploy-service/internal/core/domain"
)

func (h *Handler) ListDeployments(c *gin.Context) {
	deployments, err := h.deploymentSvc.ListAll(c.Request.Context())
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.DeploymentResponse, 0, len(deployments))
	for _, d := range deployments {
		items = append(items, dto.ToDeploymentResponse(d, h.urls))
	}

	c.JSON(http.StatusOK, dto.ListDeploymentsResponse{Items: items, Total: len(items)})
}

func (h *Handler) GetDeployment(c *gin.Context) {
	deployment, err := h.resolveDeployment(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDeploymentResponse(deployment, h.urls))
}

func (h *Handler) CreateDeployment(c *gin.Context) {
	h.limitBody(c)

	var req dto.CreateDeploymentRequest
	if err := c.ShouldBind(&req); err != nil {
		mapDomainError(c, h.uploadError("form", err))
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

	fields := log.Fields{"subdomain": req.Subdomain, "version": req.Version}
	deployment, err := h.lifecycleSvc.InitialUpload(c.Request.Context(), req.Name, req.Subdomain, req.Version, asReader(archive))
	if err != nil {
		actor(c, fields).WithError(err).Warn("create deployment failed")
		mapDomainError(c, err)
		return
	}

	actor(c, fields).Info("deployment published")
	c.JSON(http.StatusCreated, dto.ToCreateDeploymentResponse(deployment, h.urls))
}

func (h *Handler) DeleteDeployment(c *gin.Context) {
	deployment, err := h.resolveDeployment(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	if err := h.lifecycleSvc.DeleteDeployment(c.Request.Context(), deployment); err != nil {
		mapDomainError(c, err)
		return
	}

	actor(c, log.Fields{"subdomain": deployment.Subdomain}).Info("deployment removed")
	c.JSON(http.StatusOK, dto.OK())
}

// actor tags a log entry with the operator RequireUser resolved.
func actor(c *gin.Context, fields log.Fields) *log.Entry {
	entry := log.WithFields(fields)
	if user := middleware.CurrentUser(c); user != nil {
		entry = entry.WithField("user", user.Username)
	}
	return entry
}

// resolveDeployment looks up the :id path parameter by the field named in
// the lookupField query parameter, id when absent.
func (h *Handler) resolveDeployment(c *gin.Context) (*domain.Deployment, error) {
	field, err := domain.ParseLookupField(c.Query("lookupField"))
	if err != nil {
		return nil, err
	}
	return h.deploymentSvc.Lookup(c.Request.Context(), field, c.Param("id"))
}

func (h *Handler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
}

// openArchive returns the uploaded "file" part. A request without one
// yields a nil file so the service reports the missing archive in its
// usual validation order.
func (h *Handler) openArchive(c *gin.Context) (io.ReadCloser, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, h.uploadError("file", err)
	}
	if header.Size > h.maxUpload {
		return nil, h.tooLarge()
	}

	file, err := header.Open()
	if err != nil {
		return nil, &domain.IOError{Op: "open upload", Path: header.Filename, Err: err}
	}
	return file, nil
}

func (h *Handler) uploadError(field string, err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return h.tooLarge()
	}
	return &domain.FieldError{Field: field, Message: err.Error()}
}

func (h *Handler) tooLarge() error {
	return &domain.FieldError{Field: "file", Message: fmt.Sprintf("archive exceeds %d bytes", h.maxUpload)}
}

// asReader keeps a nil io.ReadCloser from turning into a non-nil
// io.Reader interface value.
func asReader(rc io.ReadCloser) io.Reader {
	if rc == nil {
		return nil
	}
	return rc
}
