package api

import (
	"net/http"
	"strconv"

	"github.com/claimdesk/claimdesk"
	"github.com/claimdesk/claimdesk/api/middleware"
	"github.com/claimdesk/claimdesk/config"
	"github.com/claimdesk/claimdesk/internal/apierror"
	"github.com/claimdesk/claimdesk/model"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	service *claimdesk.Claimdesk
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/claims", a.CreateClaim)
	router.GET("/claims", a.GetAllClaims)
	router.GET("/claims/:id", a.GetClaim)
	router.PUT("/claims/:id", a.UpdateClaim)
	router.GET("/claims/:id/sla", a.GetClaimSla)
	router.GET("/claims/:id/reprocesses", a.GetClaimReprocesses)
	router.GET("/claims/:id/events", a.GetClaimEvents)

	router.POST("/policies", a.CreatePolicy)
	router.GET("/policies", a.GetAllPolicies)
	router.GET("/policies/:id", a.GetPolicy)
	router.PUT("/policies/:id", a.UpdatePolicy)
	router.GET("/policies/:id/sla", a.GetPolicySla)
	router.GET("/policies/:id/expirations", a.GetPolicyExpirations)
	router.GET("/policies/:id/events", a.GetPolicyEvents)

	return a.router
}

func NewAPI(service *claimdesk.Claimdesk) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware("claimdesk"))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{service: service, router: r}
}

// actorRole reads the acting role from the request headers. Mutating
// endpoints require a known role; reads do not.
func actorRole(c *gin.Context) (model.Role, bool) {
	role := model.Role(c.GetHeader(middleware.RoleHeader))
	return role, role.IsKnown()
}

// handleError writes an error response, honoring the HTTP family an
// APIError carries.
func handleError(c *gin.Context, err error) {
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
