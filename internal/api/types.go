package api

import (
	"github.com/foodgram-project/backend/internal/models"
)

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the token-issue payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	AuthToken string `json:"auth_token"`
}

// SetPasswordRequest changes the caller's password.
type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// IngredientRef is an ingredient id plus the per-recipe amount.
type IngredientRef struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"required"`
}

// CreateRecipeRequest is the full recipe write payload.
type CreateRecipeRequest struct {
	Name        string          `json:"name" binding:"required"`
	Image       string          `json:"image" binding:"required"`
	Text        string          `json:"text" binding:"required"`
	CookingTime int             `json:"cooking_time" binding:"required"`
	Tags        []uint          `json:"tags"`
	Ingredients []IngredientRef `json:"ingredients"`
}

// UpdateRecipeRequest is a partial payload: nil fields were absent from the
// request body and leave the stored value untouched.
type UpdateRecipeRequest struct {
	Name        *string          `json:"name"`
	Image       *string          `json:"image"`
	Text        *string          `json:"text"`
	CookingTime *int             `json:"cooking_time"`
	Tags        *[]uint          `json:"tags"`
	Ingredients *[]IngredientRef `json:"ingredients"`
}

// UserResponse is the caller-relative user projection.
type UserResponse struct {
	Email        string `json:"email"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// RecipeIngredientResponse flattens the join row with its ingredient.
type RecipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeResponse is the full recipe projection.
type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []models.Tag               `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// ShortRecipeResponse is the minimal projection returned by toggle adds and
// nested in subscription feeds.
type ShortRecipeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// SubscriptionResponse is an author projection with their recipe feed.
type SubscriptionResponse struct {
	UserResponse
	Recipes      []ShortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

// PageResponse is the page-number pagination envelope.
type PageResponse struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}
