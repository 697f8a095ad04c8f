package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foodgram-project/backend/internal/models"
)

func TestListIngredients(t *testing.T) {
	env := setupTestEnv(t)
	env.createIngredient(t, "sugar", "g")
	env.createIngredient(t, "flour", "g")
	env.createIngredient(t, "flaxseed", "g")

	w := env.do(t, "GET", "/api/ingredients", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var ingredients []models.Ingredient
	decodeBody(t, w, &ingredients)
	assert.Len(t, ingredients, 3)
	assert.Equal(t, "flaxseed", ingredients[0].Name)
}

func TestIngredientPrefixSearch(t *testing.T) {
	env := setupTestEnv(t)
	env.createIngredient(t, "sugar", "g")
	env.createIngredient(t, "flour", "g")
	env.createIngredient(t, "flaxseed", "g")
	env.createIngredient(t, "cornflour", "g")

	w := env.do(t, "GET", "/api/ingredients?name=fl", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Prefix match only: "cornflour" contains "fl" but does not start with it.
	var ingredients []models.Ingredient
	decodeBody(t, w, &ingredients)
	assert.Len(t, ingredients, 2)
	assert.Equal(t, "flaxseed", ingredients[0].Name)
	assert.Equal(t, "flour", ingredients[1].Name)
}

func TestGetIngredient(t *testing.T) {
	env := setupTestEnv(t)
	ingredient := env.createIngredient(t, "salt", "g")

	w := env.do(t, "GET", fmt.Sprintf("/api/ingredients/%d", ingredient.ID), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body models.Ingredient
	decodeBody(t, w, &body)
	assert.Equal(t, "salt", body.Name)
	assert.Equal(t, "g", body.MeasurementUnit)

	w = env.do(t, "GET", "/api/ingredients/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
