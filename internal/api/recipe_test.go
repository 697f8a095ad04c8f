package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram-project/backend/internal/models"
)

func recipePayload(tagIDs []uint, ingredients []map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":         "Pancakes",
		"image":        testImage,
		"text":         "Whisk and fry.",
		"cooking_time": 15,
		"tags":         tagIDs,
		"ingredients":  ingredients,
	}
}

func TestCreateRecipe(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.createUser(t, "ann")
	tag := env.createTag(t, "Breakfast", "#E26C2D", "breakfast")
	flour := env.createIngredient(t, "flour", "g")
	milk := env.createIngredient(t, "milk", "ml")

	w := env.do(t, "POST", "/api/recipes", token, recipePayload(
		[]uint{tag.ID},
		[]map[string]interface{}{
			{"id": flour.ID, "amount": 200},
			{"id": milk.ID, "amount": 300},
		},
	))
	assert.Equal(t, http.StatusCreated, w.Code)

	var recipe RecipeResponse
	decodeBody(t, w, &recipe)
	assert.NotZero(t, recipe.ID)
	assert.Equal(t, "Pancakes", recipe.Name)
	assert.Equal(t, 15, recipe.CookingTime)
	assert.Equal(t, "ann", recipe.Author.Username)
	assert.False(t, recipe.IsFavorited)
	assert.False(t, recipe.IsInShoppingCart)

	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "breakfast", recipe.Tags[0].Slug)

	require.Len(t, recipe.Ingredients, 2)
	assert.Equal(t, flour.ID, recipe.Ingredients[0].ID)
	assert.Equal(t, "flour", recipe.Ingredients[0].Name)
	assert.Equal(t, "g", recipe.Ingredients[0].MeasurementUnit)
	assert.Equal(t, 200, recipe.Ingredients[0].Amount)

	// The image reference points at the stored object, not the data URI.
	assert.Contains(t, recipe.Image, "recipes/")
}

func TestCreateRecipeRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)
	tag := env.createTag(t, "Breakfast", "#E26C2D", "breakfast")
	flour := env.createIngredient(t, "flour", "g")

	w := env.do(t, "POST", "/api/recipes", "", recipePayload(
		[]uint{tag.ID},
		[]map[string]interface{}{{"id": flour.ID, "amount": 200}},
	))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRecipeDuplicateIngredients(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.createUser(t, "ann")
	tag := env.createTag(t, "Breakfast", "#E26C2D", "breakfast")
	flour := env.createIngredient(t, "flour", "g")

	w := env.do(t, "POST", "/api/recipes", token, recipePayload(
		[]uint{tag.ID},
		[]map[string]interface{}{
			{"id": flour.ID, "amount": 200},
			{"id": flour.ID, "amount": 300},
		},
	))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ingredients must not repeat")

	// Nothing was persisted.
	var count int64
	require.NoError(t, env.DB.Model(&models.Recipe{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCreateRecipeUnknownTag(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.createUser(t, "ann")
	flour := env.createIngredient(t, "flour", "g")

	w := env.do(t, "POST", "/api/recipes", token, recipePayload(
		[]uint{9999},
		[]map[string]interface{}{{"id": flour.ID, "amount": 200}},
	))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown tag")
}

func TestCreateRecipeCookingTimeTooLong(t *testing.T) {
	env := setupTestEnv(t)
	_, token := env.createUser(t, "ann")
	tag := env.createTag(t, "Breakfast", "#E26C2D", "breakfast")
	flour := env.createIngredient(t, "flour", "g")

	payload := recipePayload(
		[]uint{tag.ID},
		[]map[string]interface{}{{"id": flour.ID, "amount": 200}},
	)
	payload["cooking_time"] = 1001

	w := env.do(t, "POST", "/api/recipes", token, payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cooking_time")
}

func TestPatchRecipePartial(t *testing.T) {
	env := setupTestEnv(t)
	author, token := env.createUser(t, "ann")
	tag := env.createTag(t, "Breakfast", "#E26C2D", "breakfast")
	flour := env.createIngredient(t, "flour", "g")
	recipe := env.createRecipe(t, author.ID, "Pancakes", []models.Tag{tag}, map[uint]int{flour.ID: 200})

	// Only the name is present; tags and ingredients stay untouched.
	w := env.do(t, "PATCH", fmt.Sprintf("/api/recipes/%d", recipe.ID), token, map[string]interface{}{
		"name": "Crepes",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var body RecipeResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "Crepes", body.Name)
	assert.Len(t, body.Tags, 1)
	assert.Len(t, body.Ingredients, 1)
	assert.Equal(t, 200, body.Ingredients[0].Amount)
}

func TestPatchRecipeEmptyTags(t *testing.T) {
	env := setupTestEnv(t)
	author, token := env.createUser(t, "ann")
	tag := env.createTag(t, "Breakfast", "#E26C2D", "breakfast")
	flour := env.createIngredient(t, "flour", "g")
	recipe := env.createRecipe(t, author.ID, "Pancakes", []models.Tag{tag}, map[uint]int{flour.ID: 200})

	w := env.do(t, "PATCH", fmt.Sprintf("/api/recipes/%d", recipe.ID), token, map[string]interface{}{
		"tags": []uint{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least one tag")
}

func TestPatchRecipeReplacesIngredients(t *testing.T) {
	env := setupTestEnv(t)
	author, token := env.createUser(t, "ann")
	tag := env.createTag(t, "Breakfast", "#E26C2D", "breakfast")
	flour := env.createIngredient(t, "flour", "g")
	sugar := env.createIngredient(t, "sugar", "g")
	recipe := env.createRecipe(t, author.ID, "Pancakes", []models.Tag{tag}, map[uint]int{flour.ID: 200})

	w := env.do(t, "PATCH", fmt.Sprintf("/api/recipes/%d", recipe.ID), token, map[string]interface{}{
		"ingredients": []map[string]interface{}{{"id": sugar.ID, "amount": 50}},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var body RecipeResponse
	decodeBody(t, w, &body)
	require.Len(t, body.Ingredients, 1)
	assert.Equal(t, "sugar", body.Ingredients[0].Name)
	assert.Equal(t, 50, body.Ingredients[0].Amount)
}

func TestPatchRecipeNonAuthor(t *testing.T) {
	env := setupTestEnv(t)
	author, _ := env.createUser(t, "author")
	_, token := env.createUser(t, "other")
	recipe := env.createRecipe(t, author.ID, "Pancakes", nil, nil)

	w := env.do(t, "PATCH", fmt.Sprintf("/api/recipes/%d", recipe.ID), token, map[string]interface{}{
		"name": "Stolen",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteRecipeRemovesEdges(t *testing.T) {
	env := setupTestEnv(t)
	author, token := env.createUser(t, "ann")
	_, otherToken := env.createUser(t, "bob")
	flour := env.createIngredient(t, "flour", "g")
	recipe := env.createRecipe(t, author.ID, "Pancakes", nil, map[uint]int{flour.ID: 200})

	w := env.do(t, "POST", fmt.Sprintf("/api/recipes/%d/favorite", recipe.ID), otherToken, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, "POST", fmt.Sprintf("/api/recipes/%d/shopping_cart", recipe.ID), otherToken, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, "DELETE", fmt.Sprintf("/api/recipes/%d", recipe.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", fmt.Sprintf("/api/recipes/%d", recipe.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Favorite{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, env.DB.Model(&models.ShoppingCartEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, env.DB.Model(&models.RecipeIngredient{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestDeleteRecipeNonAuthor(t *testing.T) {
	env := setupTestEnv(t)
	author, _ := env.createUser(t, "author")
	_, token := env.createUser(t, "other")
	recipe := env.createRecipe(t, author.ID, "Pancakes", nil, nil)

	w := env.do(t, "DELETE", fmt.Sprintf("/api/recipes/%d", recipe.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListRecipesNewestFirst(t *testing.T) {
	env := setupTestEnv(t)
	author, _ := env.createUser(t, "ann")
	env.createRecipe(t, author.ID, "First", nil, nil)
	env.createRecipe(t, author.ID, "Second", nil, nil)
	env.createRecipe(t, author.ID, "Third", nil, nil)

	w := env.do(t, "GET", "/api/recipes", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count   int64            `json:"count"`
		Results []RecipeResponse `json:"results"`
	}
	decodeBody(t, w, &page)
	assert.Equal(t, int64(3), page.Count)
	require.Len(t, page.Results, 3)
	assert.Equal(t, "Third", page.Results[0].Name)
	assert.Equal(t, "First", page.Results[2].Name)
}

func TestListRecipesFilters(t *testing.T) {
	env := setupTestEnv(t)
	ann, _ := env.createUser(t, "ann")
	bob, _ := env.createUser(t, "bob")
	breakfast := env.createTag(t, "Breakfast", "#E26C2D", "breakfast")
	dinner := env.createTag(t, "Dinner", "#8775D2", "dinner")

	env.createRecipe(t, ann.ID, "Pancakes", []models.Tag{breakfast}, nil)
	env.createRecipe(t, ann.ID, "Stew", []models.Tag{dinner}, nil)
	env.createRecipe(t, bob.ID, "Omelette", []models.Tag{breakfast}, nil)

	var page struct {
		Count   int64            `json:"count"`
		Results []RecipeResponse `json:"results"`
	}

	w := env.do(t, "GET", fmt.Sprintf("/api/recipes?author=%d", ann.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.Equal(t, int64(2), page.Count)

	w = env.do(t, "GET", "/api/recipes?tags=breakfast", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.Equal(t, int64(2), page.Count)

	w = env.do(t, "GET", "/api/recipes?tags=breakfast,dinner", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.Equal(t, int64(3), page.Count)

	w = env.do(t, "GET", fmt.Sprintf("/api/recipes?author=%d&tags=dinner", ann.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Stew", page.Results[0].Name)
}

func TestListRecipesFavoritedFilter(t *testing.T) {
	env := setupTestEnv(t)
	author, _ := env.createUser(t, "author")
	_, token := env.createUser(t, "reader")

	favored := env.createRecipe(t, author.ID, "Pancakes", nil, nil)
	env.createRecipe(t, author.ID, "Stew", nil, nil)

	w := env.do(t, "POST", fmt.Sprintf("/api/recipes/%d/favorite", favored.ID), token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	var page struct {
		Count   int64            `json:"count"`
		Results []RecipeResponse `json:"results"`
	}

	w = env.do(t, "GET", "/api/recipes?is_favorited=1", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Pancakes", page.Results[0].Name)
	assert.True(t, page.Results[0].IsFavorited)

	// Anonymous callers get the unfiltered queryset.
	w = env.do(t, "GET", "/api/recipes?is_favorited=1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	assert.Equal(t, int64(2), page.Count)
}

func TestGetRecipeAnonymousFlags(t *testing.T) {
	env := setupTestEnv(t)
	author, _ := env.createUser(t, "author")
	_, token := env.createUser(t, "reader")
	recipe := env.createRecipe(t, author.ID, "Pancakes", nil, nil)

	w := env.do(t, "POST", fmt.Sprintf("/api/recipes/%d/favorite", recipe.ID), token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, "POST", fmt.Sprintf("/api/recipes/%d/shopping_cart", recipe.ID), token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Someone favorited the recipe, but the anonymous projection stays false.
	w = env.do(t, "GET", fmt.Sprintf("/api/recipes/%d", recipe.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var body RecipeResponse
	decodeBody(t, w, &body)
	assert.False(t, body.IsFavorited)
	assert.False(t, body.IsInShoppingCart)

	w = env.do(t, "GET", fmt.Sprintf("/api/recipes/%d", recipe.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &body)
	assert.True(t, body.IsFavorited)
	assert.True(t, body.IsInShoppingCart)
}
