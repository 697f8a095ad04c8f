package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/middleware"
	"github.com/foodgram-project/backend/internal/models"
	"github.com/foodgram-project/backend/internal/service"
)

// RecipeHandler exposes recipe CRUD, the favorite/cart toggles and the
// shopping list download.
type RecipeHandler struct {
	db          *gorm.DB
	recipes     *service.RecipeService
	lists       *service.ListService
	authService *service.AuthService
	writeLimit  gin.HandlerFunc
}

// NewRecipeHandler wires the recipe routes. writeLimiter may be nil; when
// set it throttles the write endpoints.
func NewRecipeHandler(db *gorm.DB, recipes *service.RecipeService, lists *service.ListService, authService *service.AuthService, writeLimiter *middleware.RateLimiter) *RecipeHandler {
	h := &RecipeHandler{
		db:          db,
		recipes:     recipes,
		lists:       lists,
		authService: authService,
	}
	if writeLimiter != nil {
		h.writeLimit = writeLimiter.Middleware()
	} else {
		h.writeLimit = func(c *gin.Context) { c.Next() }
	}
	return h
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	optional := middleware.OptionalAuthMiddleware(h.authService)
	required := middleware.AuthMiddleware(h.authService)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.List)
		recipes.POST("", required, h.writeLimit, h.Create)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.Get)
		recipes.PATCH("/:id", required, h.writeLimit, h.Update)
		recipes.DELETE("/:id", required, h.writeLimit, h.Delete)
		recipes.POST("/:id/favorite", required, h.AddFavorite)
		recipes.DELETE("/:id/favorite", required, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", required, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", required, h.RemoveFromCart)
	}
}

func (h *RecipeHandler) List(c *gin.Context) {
	requesterID := middleware.CurrentUserID(c)
	page, limit := pageParams(c)

	opts := service.ListOptions{Page: page, Limit: limit}
	if raw := c.Query("author"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			authorID := uint(id)
			opts.AuthorID = &authorID
		}
	}
	opts.TagSlugs = tagSlugs(c)

	// Membership filters apply only to authenticated requesters; anonymous
	// callers get the unfiltered queryset.
	if requesterID != 0 {
		if boolQuery(c, "is_favorited") {
			opts.FavoritedBy = &requesterID
		}
		if boolQuery(c, "is_in_shopping_cart") {
			opts.InCartOf = &requesterID
		}
	}

	recipes, total, err := h.recipes.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]RecipeResponse, 0, len(recipes))
	for i := range recipes {
		results = append(results, projectRecipe(h.db, &recipes[i], requesterID))
	}
	c.JSON(http.StatusOK, pageEnvelope(c, total, page, limit, results))
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectRecipe(h.db, recipe, middleware.CurrentUserID(c)))
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	requesterID := middleware.CurrentUserID(c)
	recipe, err := h.recipes.Create(c.Request.Context(), requesterID, service.RecipeInput{
		Name:        req.Name,
		Image:       req.Image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
		Ingredients: ingredientInputs(req.Ingredients),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectRecipe(h.db, recipe, requesterID))
}

func (h *RecipeHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
		return
	}

	var req UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	update := service.RecipeUpdate{
		Name:        req.Name,
		Image:       req.Image,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		TagIDs:      req.Tags,
	}
	if req.Ingredients != nil {
		ings := ingredientInputs(*req.Ingredients)
		update.Ingredients = &ings
	}

	requesterID := middleware.CurrentUserID(c)
	recipe, err := h.recipes.Update(c.Request.Context(), id, requesterID, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectRecipe(h.db, recipe, requesterID))
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addEdge(c, h.lists.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeEdge(c, h.lists.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addEdge(c, h.lists.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeEdge(c, h.lists.RemoveFromCart)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	requesterID := middleware.CurrentUserID(c)

	items, err := h.lists.ShoppingList(c.Request.Context(), requesterID)
	if err != nil {
		respondError(c, err)
		return
	}

	var user models.User
	if err := h.db.First(&user, requesterID).Error; err != nil {
		respondError(c, err)
		return
	}

	document := service.RenderShoppingList(&user, items, time.Now())
	filename := fmt.Sprintf("%s_shopping_list.txt", user.Username)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(document))
}

func (h *RecipeHandler) addEdge(c *gin.Context, add func(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
		return
	}

	recipe, err := add(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectShortRecipe(recipe))
}

func (h *RecipeHandler) removeEdge(c *gin.Context, remove func(ctx context.Context, userID, recipeID uint) error) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
		return
	}

	if err := remove(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func ingredientInputs(refs []IngredientRef) []service.IngredientInput {
	inputs := make([]service.IngredientInput, 0, len(refs))
	for _, ref := range refs {
		inputs = append(inputs, service.IngredientInput{ID: ref.ID, Amount: ref.Amount})
	}
	return inputs
}

// tagSlugs accepts both repeated tags params and a comma-separated value.
func tagSlugs(c *gin.Context) []string {
	var slugs []string
	for _, raw := range c.QueryArray("tags") {
		for _, slug := range strings.Split(raw, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				slugs = append(slugs, slug)
			}
		}
	}
	return slugs
}

func boolQuery(c *gin.Context, name string) bool {
	switch c.Query(name) {
	case "1", "true", "True":
		return true
	}
	return false
}
