package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/models"
	"github.com/foodgram-project/backend/internal/service"
)

// DefaultPageSize matches the product default of six items per page.
const DefaultPageSize = 6

// respondError maps the service error taxonomy onto HTTP statuses. Every
// domain error reaches the client as {"errors": "<message>"}.
func respondError(c *gin.Context, err error) {
	switch {
	case service.IsValidation(err), service.IsConflict(err):
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"errors": "not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"errors": "you do not have permission to perform this action"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"errors": "invalid credentials"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"errors": "internal server error"})
	}
}

// pageParams reads the page-number pagination query: `page` and the
// client-overridable `limit`.
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	if limit < 1 {
		limit = DefaultPageSize
	}
	return page, limit
}

// pageEnvelope builds the {count, next, previous, results} body. Links
// reuse the request URL with an adjusted page parameter.
func pageEnvelope(c *gin.Context, count int64, page, limit int, results interface{}) PageResponse {
	envelope := PageResponse{Count: count, Results: results}

	if int64(page*limit) < count {
		envelope.Next = pageLink(c, page+1)
	}
	if page > 1 {
		envelope.Previous = pageLink(c, page-1)
	}
	return envelope
}

func pageLink(c *gin.Context, page int) *string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}

// projectUser builds the caller-relative user projection. is_subscribed is
// computed per request and never stored on the entity.
func projectUser(db *gorm.DB, user *models.User, requesterID uint) UserResponse {
	return UserResponse{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: isSubscribed(db, user.ID, requesterID),
	}
}

func isSubscribed(db *gorm.DB, authorID, requesterID uint) bool {
	if requesterID == 0 {
		return false
	}
	var count int64
	db.Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", requesterID, authorID).
		Count(&count)
	return count > 0
}

// projectRecipe builds the full recipe projection. Both membership flags
// are hard-false for an anonymous requester.
func projectRecipe(db *gorm.DB, recipe *models.Recipe, requesterID uint) RecipeResponse {
	ingredients := make([]RecipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, row := range recipe.Ingredients {
		ingredients = append(ingredients, RecipeIngredientResponse{
			ID:              row.IngredientID,
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		})
	}

	tags := recipe.Tags
	if tags == nil {
		tags = []models.Tag{}
	}

	return RecipeResponse{
		ID:               recipe.ID,
		Tags:             tags,
		Author:           projectUser(db, &recipe.Author, requesterID),
		Ingredients:      ingredients,
		IsFavorited:      hasEdge(db, &models.Favorite{}, requesterID, recipe.ID),
		IsInShoppingCart: hasEdge(db, &models.ShoppingCartEntry{}, requesterID, recipe.ID),
		Name:             recipe.Name,
		Image:            recipe.Image,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
	}
}

func hasEdge(db *gorm.DB, model interface{}, requesterID, recipeID uint) bool {
	if requesterID == 0 {
		return false
	}
	var count int64
	db.Model(model).Where("user_id = ? AND recipe_id = ?", requesterID, recipeID).Count(&count)
	return count > 0
}

func projectShortRecipe(recipe *models.Recipe) ShortRecipeResponse {
	return ShortRecipeResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}
}

// projectFeed builds the subscription projection for one followed author.
func projectFeed(db *gorm.DB, feed *service.AuthorFeed, requesterID uint) SubscriptionResponse {
	recipes := make([]ShortRecipeResponse, 0, len(feed.Recipes))
	for i := range feed.Recipes {
		recipes = append(recipes, projectShortRecipe(&feed.Recipes[i]))
	}
	return SubscriptionResponse{
		UserResponse: projectUser(db, &feed.Author, requesterID),
		Recipes:      recipes,
		RecipesCount: feed.RecipesCount,
	}
}

// pathID parses a numeric path parameter.
func pathID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return uint(id), nil
}
