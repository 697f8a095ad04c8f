package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/middleware"
	"github.com/foodgram-project/backend/internal/models"
	"github.com/foodgram-project/backend/internal/service"
)

// UserHandler exposes registration, user reads and the subscription
// endpoints.
type UserHandler struct {
	db            *gorm.DB
	authService   *service.AuthService
	subscriptions *service.SubscriptionService
}

func NewUserHandler(db *gorm.DB, authService *service.AuthService, subscriptions *service.SubscriptionService) *UserHandler {
	return &UserHandler{db: db, authService: authService, subscriptions: subscriptions}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", middleware.OptionalAuthMiddleware(h.authService), h.List)
		users.GET("/subscriptions", middleware.AuthMiddleware(h.authService), h.Subscriptions)
		users.GET("/me", middleware.AuthMiddleware(h.authService), h.Me)
		users.POST("/set_password", middleware.AuthMiddleware(h.authService), h.SetPassword)
		users.GET("/:id", middleware.OptionalAuthMiddleware(h.authService), h.Get)
		users.POST("/:id/subscribe", middleware.AuthMiddleware(h.authService), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.AuthMiddleware(h.authService), h.Unsubscribe)
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectUser(h.db, user, 0))
}

func (h *UserHandler) List(c *gin.Context) {
	requesterID := middleware.CurrentUserID(c)
	page, limit := pageParams(c)

	var total int64
	if err := h.db.Model(&models.User{}).Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}

	var users []models.User
	if err := h.db.Order("id").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}

	results := make([]UserResponse, 0, len(users))
	for i := range users {
		results = append(results, projectUser(h.db, &users[i], requesterID))
	}
	c.JSON(http.StatusOK, pageEnvelope(c, total, page, limit, results))
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectUser(h.db, &user, middleware.CurrentUserID(c)))
}

func (h *UserHandler) Me(c *gin.Context) {
	requesterID := middleware.CurrentUserID(c)

	var user models.User
	if err := h.db.First(&user, requesterID).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectUser(h.db, &user, requesterID))
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := h.authService.SetPassword(c.Request.Context(), middleware.CurrentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
		return
	}
	requesterID := middleware.CurrentUserID(c)

	feed, err := h.subscriptions.Subscribe(c.Request.Context(), requesterID, authorID, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectFeed(h.db, feed, requesterID))
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
		return
	}

	if err := h.subscriptions.Unsubscribe(c.Request.Context(), middleware.CurrentUserID(c), authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	requesterID := middleware.CurrentUserID(c)
	page, limit := pageParams(c)

	feeds, total, err := h.subscriptions.Subscriptions(c.Request.Context(), requesterID, page, limit, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]SubscriptionResponse, 0, len(feeds))
	for i := range feeds {
		results = append(results, projectFeed(h.db, &feeds[i], requesterID))
	}
	c.JSON(http.StatusOK, pageEnvelope(c, total, page, limit, results))
}

// recipesLimit reads the optional truncation for nested recipe feeds.
func recipesLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
