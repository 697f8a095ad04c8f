package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/foodgram-project/backend/internal/database"
	"github.com/foodgram-project/backend/internal/models"
	"github.com/foodgram-project/backend/internal/service"
)

// testImage is a syntactically valid inline upload; the payload does not
// have to be a real image, only decodable base64.
const testImage = "data:image/png;base64,ZmFrZS1pbWFnZS1ieXRlcw=="

const testPassword = "password123"

// testEnv holds the router and services handler tests exercise.
type testEnv struct {
	Router *gin.Engine
	DB     *gorm.DB
	Auth   *service.AuthService
}

// setupTestEnv builds a full API router backed by an in-memory database.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pooled connection would see its own empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	auth := service.NewAuthService(db, "test-secret")
	images := service.NewImageService(t.TempDir(), nil)

	router := gin.New()
	group := router.Group("/api")
	NewAuthHandler(auth).RegisterRoutes(group)
	NewUserHandler(db, auth, service.NewSubscriptionService(db)).RegisterRoutes(group)
	NewTagHandler(db).RegisterRoutes(group)
	NewIngredientHandler(db).RegisterRoutes(group)
	NewRecipeHandler(db, service.NewRecipeService(db, images), service.NewListService(db), auth, nil).RegisterRoutes(group)

	return &testEnv{Router: router, DB: db, Auth: auth}
}

// createUser registers a user and returns it together with a login token.
func (e *testEnv) createUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	ctx := context.Background()

	user, err := e.Auth.Register(ctx, service.RegisterInput{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Test",
		LastName:  username,
		Password:  testPassword,
	})
	require.NoError(t, err)

	token, err := e.Auth.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) createTag(t *testing.T, name, color, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Color: color, Slug: slug}
	require.NoError(t, e.DB.Create(&tag).Error)
	return tag
}

func (e *testEnv) createIngredient(t *testing.T, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, e.DB.Create(&ingredient).Error)
	return ingredient
}

// createRecipe inserts a recipe directly, bypassing the image pipeline.
// amounts maps ingredient id to the per-recipe amount.
func (e *testEnv) createRecipe(t *testing.T, authorID uint, name string, tags []models.Tag, amounts map[uint]int) models.Recipe {
	t.Helper()

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        name,
		Image:       "recipes/fixture.png",
		Text:        "Mix everything and cook.",
		CookingTime: 10,
	}
	require.NoError(t, e.DB.Create(&recipe).Error)

	for id, amount := range amounts {
		row := models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: id, Amount: amount}
		require.NoError(t, e.DB.Create(&row).Error)
	}
	if len(tags) > 0 {
		require.NoError(t, e.DB.Model(&recipe).Association("Tags").Replace(tags))
	}
	return recipe
}

// do performs a JSON request against the test router.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

// setupPostgresDB starts a throwaway PostgreSQL container for tests that
// need real constraint semantics. Skips when docker is unavailable.
func setupPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable",
		host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}
