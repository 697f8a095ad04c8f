package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/api"
	"github.com/foodgram-project/backend/internal/middleware"
	"github.com/foodgram-project/backend/internal/service"
)

// Deps bundles everything the route table needs.
type Deps struct {
	DB            *gorm.DB
	Auth          *service.AuthService
	Recipes       *service.RecipeService
	Lists         *service.ListService
	Subscriptions *service.SubscriptionService

	// WriteLimiter throttles recipe writes; nil disables throttling.
	WriteLimiter *middleware.RateLimiter
	CORSOrigins  []string
}

// SetupRouter configures the application routes.
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORS(deps.CORSOrigins))
	router.Use(middleware.Metrics())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")
	{
		api.NewAuthHandler(deps.Auth).RegisterRoutes(apiGroup)
		api.NewUserHandler(deps.DB, deps.Auth, deps.Subscriptions).RegisterRoutes(apiGroup)
		api.NewTagHandler(deps.DB).RegisterRoutes(apiGroup)
		api.NewIngredientHandler(deps.DB).RegisterRoutes(apiGroup)
		api.NewRecipeHandler(deps.DB, deps.Recipes, deps.Lists, deps.Auth, deps.WriteLimiter).RegisterRoutes(apiGroup)
	}

	return router
}
