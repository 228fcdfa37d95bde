package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"site-deploy-service/internal/adapters/primary/http/dto"
	"site-deploy-service/internal/adapters/primary/http/middleware"
	"site-deploy-service/internal/adapters/primary/http/session"
	"site-deploy-service/internal/core/services"
)

type Handler struct {
	deploymentSvc *services.DeploymentService
	lifecycleSvc  *services.LifecycleService
	authSvc       *services.AuthService
	sessions      *session.Manager
	urls          dto.SiteURL
	maxUpload     int64
}

type Options struct {
	HostingScheme  string
	HostingDomain  string
	UploadMaxBytes int64
}

func New(
	deploymentSvc *services.DeploymentService,
	lifecycleSvc *services.LifecycleService,
	authSvc *services.AuthService,
	sessions *session.Manager,
	opts Options,
) *Handler {
	return &Handler{
		deploymentSvc: deploymentSvc,
		lifecycleSvc:  lifecycleSvc,
		authSvc:       authSvc,
		sessions:      sessions,
		urls:          dto.SiteURL{Scheme: opts.HostingScheme, Domain: opts.HostingDomain},
		maxUpload:     opts.UploadMaxBytes,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Index)

	// Session
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	// Public reads
	r.GET("/deployments/:id", h.GetDeployment)
	r.GET("/deployments/:id/:version", h.GetVersion)

	// Operator actions
	auth := r.Group("", middleware.RequireUser(h.sessions, h.authSvc))
	auth.GET("/deployments", h.ListDeployments)
	auth.POST("/deployments", h.CreateDeployment)
	auth.DELETE("/deployments/:id", h.DeleteDeployment)
	auth.POST("/deployments/:id/:version", h.UploadVersion)
	auth.DELETE("/deployments/:id/:version", h.DeleteVersion)
}

func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, "site deploy service is running")
}
