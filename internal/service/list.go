package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/models"
)

// ErrEmptyCart is returned when a shopping list is requested for an empty
// cart. The empty cart is a precondition failure, not an empty document.
var ErrEmptyCart = Conflict("shopping cart is empty")

// ListService implements the favorite and shopping-cart edges. Both tables
// share one add/remove control flow parameterized by the edge row; the
// uniqueness constraint on (user_id, recipe_id) is the race arbiter for
// concurrent duplicate adds.
type ListService struct {
	db *gorm.DB
}

func NewListService(db *gorm.DB) *ListService {
	return &ListService{db: db}
}

func (s *ListService) AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.addTo(ctx, &models.Favorite{UserID: userID, RecipeID: recipeID},
		userID, recipeID, "recipe is already in favorites")
}

func (s *ListService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.removeFrom(ctx, &models.Favorite{}, userID, recipeID, "recipe is not in favorites")
}

func (s *ListService) AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.addTo(ctx, &models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID},
		userID, recipeID, "recipe is already in shopping cart")
}

func (s *ListService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.removeFrom(ctx, &models.ShoppingCartEntry{}, userID, recipeID, "recipe is not in shopping cart")
}

// addTo inserts row (a pre-filled Favorite or ShoppingCartEntry) unless the
// edge already exists, and returns the recipe for the short projection.
func (s *ListService) addTo(ctx context.Context, row interface{}, userID, recipeID uint, conflictMsg string) (*models.Recipe, error) {
	db := s.db.WithContext(ctx)

	var recipe models.Recipe
	if err := db.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var count int64
	if err := db.Model(row).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, Conflict(conflictMsg)
	}

	if err := db.Create(row).Error; err != nil {
		// Lost a race with a concurrent add: the constraint rejects the
		// loser, which must observe the same conflict as a pre-checked one.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict(conflictMsg)
		}
		return nil, err
	}
	return &recipe, nil
}

// removeFrom deletes the edge row; removing an absent edge is a conflict.
func (s *ListService) removeFrom(ctx context.Context, model interface{}, userID, recipeID uint, conflictMsg string) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return Conflict(conflictMsg)
	}
	return nil
}

// ShoppingItem is one aggregated line of the shopping list.
type ShoppingItem struct {
	Name            string
	MeasurementUnit string
	Total           int
}

// ShoppingList sums ingredient amounts across every recipe in the user's
// cart, grouped by the (name, measurement_unit) pair, ordered alphabetically
// by name.
func (s *ListService) ShoppingList(ctx context.Context, userID uint) ([]ShoppingItem, error) {
	db := s.db.WithContext(ctx)

	var entries int64
	if err := db.Model(&models.ShoppingCartEntry{}).Where("user_id = ?", userID).Count(&entries).Error; err != nil {
		return nil, err
	}
	if entries == 0 {
		return nil, ErrEmptyCart
	}

	var items []ShoppingItem
	err := db.Model(&models.RecipeIngredient{}).
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_cart_entries ON shopping_cart_entries.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_cart_entries.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}

	// Case-normalized alphabetical order, done here rather than in SQL so
	// collation does not differ between engines.
	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

// RenderShoppingList produces the line-oriented plain-text document.
func RenderShoppingList(user *models.User, items []ShoppingItem, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopping list for %s\n\n", user.FullName())
	for _, item := range items {
		fmt.Fprintf(&b, "%s, %d %s\n", capitalize(item.Name), item.Total, item.MeasurementUnit)
	}
	fmt.Fprintf(&b, "\nFoodgram (%s)\n", now.Format("2006-01-02"))
	return b.String()
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
