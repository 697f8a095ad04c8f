package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/models"
)

// RecipeService handles recipe CRUD. Every multi-table write runs in a
// single transaction so a failed validation rolls back the whole set.
type RecipeService struct {
	db     *gorm.DB
	images *ImageService
}

func NewRecipeService(db *gorm.DB, images *ImageService) *RecipeService {
	return &RecipeService{db: db, images: images}
}

// IngredientInput references an ingredient id with a per-recipe amount.
type IngredientInput struct {
	ID     uint
	Amount int
}

// RecipeInput is the full payload for creating a recipe.
type RecipeInput struct {
	Name        string
	Image       string // base64 data URI
	Text        string
	CookingTime int
	TagIDs      []uint
	Ingredients []IngredientInput
}

// RecipeUpdate is a partial payload. Nil slices mean "leave the association
// untouched"; a present-but-empty slice is a validation error.
type RecipeUpdate struct {
	Name        *string
	Image       *string
	Text        *string
	CookingTime *int
	TagIDs      *[]uint
	Ingredients *[]IngredientInput
}

// Create persists the recipe row, its ingredient rows and tag associations
// atomically. The image payload is decoded and stored first; if any later
// step fails the transaction rolls back and only the stored file leaks.
func (s *RecipeService) Create(ctx context.Context, authorID uint, input RecipeInput) (*models.Recipe, error) {
	if err := validateTags(input.TagIDs); err != nil {
		return nil, err
	}
	if err := validateIngredients(input.Ingredients); err != nil {
		return nil, err
	}
	if input.CookingTime < models.MinCookingTime || input.CookingTime > models.MaxCookingTime {
		return nil, Validation(fmt.Sprintf("cooking_time must be between %d and %d", models.MinCookingTime, models.MaxCookingTime))
	}
	if input.Image == "" {
		return nil, Validation("image is required")
	}

	imageRef, err := s.images.Store(ctx, input.Image)
	if err != nil {
		return nil, err
	}

	var recipeID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := loadTags(tx, input.TagIDs)
		if err != nil {
			return err
		}
		if err := checkIngredientIDs(tx, input.Ingredients); err != nil {
			return err
		}

		recipe := models.Recipe{
			AuthorID:    authorID,
			Name:        input.Name,
			Image:       imageRef,
			Text:        input.Text,
			CookingTime: input.CookingTime,
		}
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		if err := insertIngredients(tx, recipe.ID, input.Ingredients); err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		recipeID = recipe.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, recipeID)
}

// Update applies a partial payload. Present ingredient/tag sets are replaced
// wholesale, everything else is left as is.
func (s *RecipeService) Update(ctx context.Context, recipeID, callerID uint, input RecipeUpdate) (*models.Recipe, error) {
	if input.TagIDs != nil {
		if err := validateTags(*input.TagIDs); err != nil {
			return nil, err
		}
	}
	if input.Ingredients != nil {
		if err := validateIngredients(*input.Ingredients); err != nil {
			return nil, err
		}
	}
	if input.CookingTime != nil {
		if *input.CookingTime < models.MinCookingTime || *input.CookingTime > models.MaxCookingTime {
			return nil, Validation(fmt.Sprintf("cooking_time must be between %d and %d", models.MinCookingTime, models.MaxCookingTime))
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.First(&recipe, recipeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := s.authorize(tx, &recipe, callerID); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if input.Name != nil {
			updates["name"] = *input.Name
		}
		if input.Text != nil {
			updates["text"] = *input.Text
		}
		if input.CookingTime != nil {
			updates["cooking_time"] = *input.CookingTime
		}
		if input.Image != nil && *input.Image != "" {
			imageRef, err := s.images.Store(ctx, *input.Image)
			if err != nil {
				return err
			}
			updates["image"] = imageRef
		}
		if len(updates) > 0 {
			if err := tx.Model(&recipe).Updates(updates).Error; err != nil {
				return err
			}
		}

		if input.Ingredients != nil {
			if err := checkIngredientIDs(tx, *input.Ingredients); err != nil {
				return err
			}
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return err
			}
			if err := insertIngredients(tx, recipe.ID, *input.Ingredients); err != nil {
				return err
			}
		}
		if input.TagIDs != nil {
			tags, err := loadTags(tx, *input.TagIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, recipeID)
}

// Delete removes the recipe together with its edges. Edge rows are deleted
// explicitly so behavior does not depend on the engine enforcing cascades.
func (s *RecipeService) Delete(ctx context.Context, recipeID, callerID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.First(&recipe, recipeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := s.authorize(tx, &recipe, callerID); err != nil {
			return err
		}

		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.ShoppingCartEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
}

// Get loads a recipe with author, tags and ingredient rows.
func (s *RecipeService) Get(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		First(&recipe, recipeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// ListOptions are the recipe list filters. FavoritedBy/InCartOf are set only
// for an authenticated requester; for anonymous callers the corresponding
// query flags are no-ops.
type ListOptions struct {
	AuthorID    *uint
	TagSlugs    []string
	FavoritedBy *uint
	InCartOf    *uint
	Page        int
	Limit       int
}

// List returns one page of recipes, newest first, plus the total match count.
func (s *RecipeService) List(ctx context.Context, opts ListOptions) ([]models.Recipe, int64, error) {
	var total int64
	if err := s.filtered(ctx, opts).Model(&models.Recipe{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Page < 1 {
		opts.Page = 1
	}

	var recipes []models.Recipe
	query := s.filtered(ctx, opts).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Order("recipes.created_at DESC, recipes.id DESC")
	if opts.Limit > 0 {
		query = query.Offset((opts.Page - 1) * opts.Limit).Limit(opts.Limit)
	}
	if err := query.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

func (s *RecipeService) filtered(ctx context.Context, opts ListOptions) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if opts.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *opts.AuthorID)
	}
	if len(opts.TagSlugs) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", opts.TagSlugs)
		query = query.Where("recipes.id IN (?)", tagged)
	}
	if opts.FavoritedBy != nil {
		query = query.Where("recipes.id IN (?)", s.db.Table("favorites").
			Select("favorites.recipe_id").
			Where("favorites.user_id = ?", *opts.FavoritedBy))
	}
	if opts.InCartOf != nil {
		query = query.Where("recipes.id IN (?)", s.db.Table("shopping_cart_entries").
			Select("shopping_cart_entries.recipe_id").
			Where("shopping_cart_entries.user_id = ?", *opts.InCartOf))
	}
	return query
}

func (s *RecipeService) authorize(tx *gorm.DB, recipe *models.Recipe, callerID uint) error {
	if recipe.AuthorID == callerID {
		return nil
	}
	var caller models.User
	if err := tx.First(&caller, callerID).Error; err != nil {
		return ErrForbidden
	}
	if !caller.IsSuperuser {
		return ErrForbidden
	}
	return nil
}

func validateTags(tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return Validation("add at least one tag")
	}
	seen := make(map[uint]bool, len(tagIDs))
	for _, id := range tagIDs {
		if seen[id] {
			return Validation("tags must not repeat")
		}
		seen[id] = true
	}
	return nil
}

func validateIngredients(ingredients []IngredientInput) error {
	if len(ingredients) == 0 {
		return Validation("add at least one ingredient")
	}
	seen := make(map[uint]bool, len(ingredients))
	for _, ing := range ingredients {
		if seen[ing.ID] {
			return Validation("ingredients must not repeat")
		}
		seen[ing.ID] = true
		if ing.Amount < models.MinAmount || ing.Amount > models.MaxAmount {
			return Validation(fmt.Sprintf("ingredient amount must be between %d and %d", models.MinAmount, models.MaxAmount))
		}
	}
	return nil
}

func loadTags(tx *gorm.DB, tagIDs []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := tx.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(tagIDs) {
		return nil, Validation("unknown tag id")
	}
	return tags, nil
}

func checkIngredientIDs(tx *gorm.DB, ingredients []IngredientInput) error {
	ids := make([]uint, 0, len(ingredients))
	for _, ing := range ingredients {
		ids = append(ids, ing.ID)
	}
	var count int64
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(ids) {
		return Validation("unknown ingredient id")
	}
	return nil
}

func insertIngredients(tx *gorm.DB, recipeID uint, ingredients []IngredientInput) error {
	rows := make([]models.RecipeIngredient, 0, len(ingredients))
	for _, ing := range ingredients {
		rows = append(rows, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ing.ID,
			Amount:       ing.Amount,
		})
	}
	return tx.Create(&rows).Error
}
