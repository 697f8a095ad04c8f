package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram-project/backend/internal/models"
)

func TestAddFavoriteTwice(t *testing.T) {
	db := setupDB(t)
	lists := NewListService(db)
	ctx := context.Background()

	user := newUser(t, db, "ann")
	recipe := newRecipe(t, db, user.ID, "Pancakes", nil)

	got, err := lists.AddFavorite(ctx, user.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, got.ID)

	_, err = lists.AddFavorite(ctx, user.ID, recipe.ID)
	assert.True(t, IsConflict(err))

	var count int64
	require.NoError(t, db.Model(&models.Favorite{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAddFavoriteUnknownRecipe(t *testing.T) {
	db := setupDB(t)
	lists := NewListService(db)

	user := newUser(t, db, "ann")
	_, err := lists.AddFavorite(context.Background(), user.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveFavoriteAbsent(t *testing.T) {
	db := setupDB(t)
	lists := NewListService(db)
	ctx := context.Background()

	user := newUser(t, db, "ann")
	recipe := newRecipe(t, db, user.ID, "Pancakes", nil)

	_, err := lists.AddFavorite(ctx, user.ID, recipe.ID)
	require.NoError(t, err)
	require.NoError(t, lists.RemoveFavorite(ctx, user.ID, recipe.ID))

	err = lists.RemoveFavorite(ctx, user.ID, recipe.ID)
	assert.True(t, IsConflict(err))
}

func TestCartToggleConflicts(t *testing.T) {
	db := setupDB(t)
	lists := NewListService(db)
	ctx := context.Background()

	user := newUser(t, db, "ann")
	recipe := newRecipe(t, db, user.ID, "Pancakes", nil)

	_, err := lists.AddToCart(ctx, user.ID, recipe.ID)
	require.NoError(t, err)
	_, err = lists.AddToCart(ctx, user.ID, recipe.ID)
	assert.True(t, IsConflict(err))

	require.NoError(t, lists.RemoveFromCart(ctx, user.ID, recipe.ID))
	assert.True(t, IsConflict(lists.RemoveFromCart(ctx, user.ID, recipe.ID)))
}

func TestShoppingListAggregation(t *testing.T) {
	db := setupDB(t)
	lists := NewListService(db)
	ctx := context.Background()

	user := newUser(t, db, "ann")
	flour := newIngredient(t, db, "flour", "g")
	sugar := newIngredient(t, db, "sugar", "g")

	pancakes := newRecipe(t, db, user.ID, "Pancakes", map[uint]int{flour.ID: 200, sugar.ID: 50})
	bread := newRecipe(t, db, user.ID, "Bread", map[uint]int{flour.ID: 300})

	_, err := lists.AddToCart(ctx, user.ID, pancakes.ID)
	require.NoError(t, err)
	_, err = lists.AddToCart(ctx, user.ID, bread.ID)
	require.NoError(t, err)

	items, err := lists.ShoppingList(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ShoppingItem{Name: "flour", MeasurementUnit: "g", Total: 500}, items[0])
	assert.Equal(t, ShoppingItem{Name: "sugar", MeasurementUnit: "g", Total: 50}, items[1])
}

func TestShoppingListOrderIndependent(t *testing.T) {
	db := setupDB(t)
	lists := NewListService(db)
	ctx := context.Background()

	flour := newIngredient(t, db, "flour", "g")
	sugar := newIngredient(t, db, "sugar", "g")

	author := newUser(t, db, "author")
	pancakes := newRecipe(t, db, author.ID, "Pancakes", map[uint]int{flour.ID: 200, sugar.ID: 50})
	bread := newRecipe(t, db, author.ID, "Bread", map[uint]int{flour.ID: 300})

	first := newUser(t, db, "first")
	second := newUser(t, db, "second")

	// Same recipes added in opposite orders yield the same totals.
	_, err := lists.AddToCart(ctx, first.ID, pancakes.ID)
	require.NoError(t, err)
	_, err = lists.AddToCart(ctx, first.ID, bread.ID)
	require.NoError(t, err)
	_, err = lists.AddToCart(ctx, second.ID, bread.ID)
	require.NoError(t, err)
	_, err = lists.AddToCart(ctx, second.ID, pancakes.ID)
	require.NoError(t, err)

	firstItems, err := lists.ShoppingList(ctx, first.ID)
	require.NoError(t, err)
	secondItems, err := lists.ShoppingList(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, firstItems, secondItems)
}

func TestShoppingListEmptyCart(t *testing.T) {
	db := setupDB(t)
	lists := NewListService(db)

	user := newUser(t, db, "ann")
	_, err := lists.ShoppingList(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.True(t, IsConflict(err))
}

func TestRenderShoppingList(t *testing.T) {
	user := models.User{Username: "ann", FirstName: "Ann", LastName: "Smith"}
	items := []ShoppingItem{
		{Name: "flour", MeasurementUnit: "g", Total: 500},
		{Name: "sugar", MeasurementUnit: "g", Total: 50},
	}
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

	got := RenderShoppingList(&user, items, now)
	want := "Shopping list for Ann Smith\n\nFlour, 500 g\nSugar, 50 g\n\nFoodgram (2026-08-31)\n"
	assert.Equal(t, want, got)
}

func TestRenderShoppingListFallsBackToUsername(t *testing.T) {
	user := models.User{Username: "ann"}
	got := RenderShoppingList(&user, nil, time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, got, "Shopping list for ann\n")
}
