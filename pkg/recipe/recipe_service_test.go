package recipe

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/pkg/catalog"
	"foodgram-backend/pkg/user"
)

// base64 of the PNG file signature, enough for content type detection
const testImage = "data:image/png;base64,iVBORw0KGgo="

const testSchema = `
CREATE TABLE users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	first_name TEXT,
	last_name TEXT,
	password TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE subscriptions (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL,
	subscriber_id TEXT NOT NULL,
	created_at DATETIME,
	UNIQUE (author_id, subscriber_id)
);
CREATE TABLE tags (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	color TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL UNIQUE,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE ingredients (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	measurement_unit TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE recipes (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL,
	name TEXT NOT NULL,
	image_url TEXT,
	text TEXT,
	cooking_time INTEGER,
	created_at DATETIME,
	updated_at DATETIME,
	UNIQUE (author_id, name)
);
CREATE TABLE recipe_tags (
	recipe_id TEXT NOT NULL,
	tag_id TEXT NOT NULL,
	PRIMARY KEY (recipe_id, tag_id)
);
CREATE TABLE recipe_ingredients (
	id TEXT PRIMARY KEY,
	recipe_id TEXT NOT NULL,
	ingredient_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	UNIQUE (recipe_id, ingredient_id)
);
CREATE TABLE favorites (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	recipe_id TEXT NOT NULL,
	created_at DATETIME,
	UNIQUE (user_id, recipe_id)
);
CREATE TABLE shopping_carts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	recipe_id TEXT NOT NULL,
	created_at DATETIME,
	UNIQUE (user_id, recipe_id)
);
`

// stubStorage keeps uploads in memory so tests never touch AWS.
type stubStorage struct {
	uploaded []string
	deleted  []string
}

func (s *stubStorage) UploadBytes(fileName string, data []byte, contentType string, dir string) (string, error) {
	key := dir + "/" + fileName
	s.uploaded = append(s.uploaded, key)
	return key, nil
}

func (s *stubStorage) DeleteFile(objectKey string) error {
	s.deleted = append(s.deleted, objectKey)
	return nil
}

func (s *stubStorage) GetPublicLinkKey(objectKey string) string {
	return "https://cdn.test/" + objectKey
}

func (s *stubStorage) GetObjectKeyFromLink(link string) string {
	return strings.TrimPrefix(link, "https://cdn.test/")
}

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range strings.Split(testSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return db
}

type RecipeServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service RecipeService
	storage *stubStorage

	author  *entities.User
	other   *entities.User
	tag     *entities.Tag
	flour   *entities.Ingredient
	sugar   *entities.Ingredient
}

func TestRecipeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeServiceTestSuite))
}

func (s *RecipeServiceTestSuite) SetupTest() {
	s.db = openTestDB(s.T())
	s.storage = &stubStorage{}

	recipeRepository := NewRecipeRepository(s.db)
	catalogRepository := catalog.NewCatalogRepository(s.db)
	userRepository := user.NewUserRepository(s.db)
	s.service = NewRecipeService(recipeRepository, catalogRepository, userRepository, s.storage)

	s.author = s.createUser("author@example.com", "author")
	s.other = s.createUser("other@example.com", "other")
	s.tag = s.createTag("Breakfast", "#E26C2D", "breakfast")
	s.flour = s.createIngredient("flour", "g")
	s.sugar = s.createIngredient("sugar", "g")
}

func (s *RecipeServiceTestSuite) createUser(email, username string) *entities.User {
	u := &entities.User{
		ID:       uuid.New(),
		Email:    email,
		Username: username,
		Password: "hashed",
	}
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *RecipeServiceTestSuite) createTag(name, color, slug string) *entities.Tag {
	tag := &entities.Tag{ID: uuid.New(), Name: name, Color: color, Slug: slug}
	s.Require().NoError(s.db.Create(tag).Error)
	return tag
}

func (s *RecipeServiceTestSuite) createIngredient(name, unit string) *entities.Ingredient {
	ingredient := &entities.Ingredient{ID: uuid.New(), Name: name, MeasurementUnit: unit}
	s.Require().NoError(s.db.Create(ingredient).Error)
	return ingredient
}

func (s *RecipeServiceTestSuite) saveRequest(name string, lines ...domain.IngredientLineRequest) domain.SaveRecipeRequest {
	return domain.SaveRecipeRequest{
		Name:        name,
		Text:        "mix and bake",
		CookingTime: 30,
		Image:       testImage,
		Tags:        []string{s.tag.ID.String()},
		Ingredients: lines,
	}
}

func (s *RecipeServiceTestSuite) createRecipe(name string, lines ...domain.IngredientLineRequest) domain.RecipeResponse {
	created, err := s.service.CreateRecipe(context.Background(), s.saveRequest(name, lines...), s.author.ID.String())
	s.Require().NoError(err)
	return created
}

func (s *RecipeServiceTestSuite) TestCreateRecipe() {
	created := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200},
		domain.IngredientLineRequest{IngredientID: s.sugar.ID.String(), Amount: 50},
	)

	s.Equal("Pancakes", created.Name)
	s.Equal(s.author.Username, created.Author.Username)
	s.Len(created.Tags, 1)
	s.Len(created.Ingredients, 2)
	s.False(created.IsFavorited)
	s.Contains(created.ImageURL, "https://cdn.test/recipes/recipe-")

	var lineCount int64
	s.Require().NoError(s.db.Model(&entities.RecipeIngredient{}).Count(&lineCount).Error)
	s.EqualValues(2, lineCount)
}

func (s *RecipeServiceTestSuite) TestCreateRecipeRejectsDuplicateIngredient() {
	_, err := s.service.CreateRecipe(context.Background(), s.saveRequest("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200},
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 100},
	), s.author.ID.String())
	s.ErrorIs(err, domain.ErrDuplicateIngredient)
}

func (s *RecipeServiceTestSuite) TestCreateRecipeValidatesBounds() {
	req := s.saveRequest("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})
	req.CookingTime = 361
	_, err := s.service.CreateRecipe(context.Background(), req, s.author.ID.String())
	s.ErrorIs(err, domain.ErrCookingTimeOutOfRange)

	_, err = s.service.CreateRecipe(context.Background(), s.saveRequest("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 1001},
	), s.author.ID.String())
	s.ErrorIs(err, domain.ErrAmountOutOfRange)
}

func (s *RecipeServiceTestSuite) TestCreateRecipeRejectsUnknownReferences() {
	req := s.saveRequest("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})
	req.Tags = []string{uuid.NewString()}
	_, err := s.service.CreateRecipe(context.Background(), req, s.author.ID.String())
	s.ErrorIs(err, domain.ErrTagNotFound)

	_, err = s.service.CreateRecipe(context.Background(), s.saveRequest("Pancakes",
		domain.IngredientLineRequest{IngredientID: uuid.NewString(), Amount: 200},
	), s.author.ID.String())
	s.ErrorIs(err, domain.ErrIngredientNotFound)
}

func (s *RecipeServiceTestSuite) TestCreateRecipeRejectsBadImage() {
	req := s.saveRequest("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})
	req.Image = "not-base64!!"
	_, err := s.service.CreateRecipe(context.Background(), req, s.author.ID.String())
	s.ErrorIs(err, domain.ErrImageNotDecodable)

	req.Image = "   "
	_, err = s.service.CreateRecipe(context.Background(), req, s.author.ID.String())
	s.ErrorIs(err, domain.ErrImageRequired)
}

func (s *RecipeServiceTestSuite) TestCreateRecipeNameUniquePerAuthor() {
	s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})

	_, err := s.service.CreateRecipe(context.Background(), s.saveRequest("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.sugar.ID.String(), Amount: 50},
	), s.author.ID.String())
	s.ErrorIs(err, domain.ErrRecipeNameTaken)

	// a different author may reuse the name
	_, err = s.service.CreateRecipe(context.Background(), s.saveRequest("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.sugar.ID.String(), Amount: 50},
	), s.other.ID.String())
	s.NoError(err)
}

func (s *RecipeServiceTestSuite) TestUpdateRecipeReplacesLines() {
	created := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200},
		domain.IngredientLineRequest{IngredientID: s.sugar.ID.String(), Amount: 50},
	)

	req := s.saveRequest("Crepes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 120})
	updated, err := s.service.UpdateRecipe(context.Background(), created.ID, req, s.author.ID.String())
	s.Require().NoError(err)

	s.Equal("Crepes", updated.Name)
	s.Require().Len(updated.Ingredients, 1)
	s.Equal(s.flour.ID.String(), updated.Ingredients[0].ID)
	s.Equal(120, updated.Ingredients[0].Amount)

	var lineCount int64
	s.Require().NoError(s.db.Model(&entities.RecipeIngredient{}).Count(&lineCount).Error)
	s.EqualValues(1, lineCount)
}

func (s *RecipeServiceTestSuite) TestUpdateRecipeRequiresAuthor() {
	created := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})

	req := s.saveRequest("Crepes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 120})
	_, err := s.service.UpdateRecipe(context.Background(), created.ID, req, s.other.ID.String())
	s.ErrorIs(err, domain.ErrUnauthorizedRecipeAccess)
}

func (s *RecipeServiceTestSuite) TestDeleteRecipe() {
	created := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})

	err := s.service.DeleteRecipe(context.Background(), created.ID, s.other.ID.String())
	s.ErrorIs(err, domain.ErrUnauthorizedRecipeAccess)

	s.Require().NoError(s.service.DeleteRecipe(context.Background(), created.ID, s.author.ID.String()))

	_, err = s.service.GetRecipeDetail(context.Background(), created.ID, "")
	s.ErrorIs(err, domain.ErrRecipeNotFound)

	var lineCount int64
	s.Require().NoError(s.db.Model(&entities.RecipeIngredient{}).Count(&lineCount).Error)
	s.EqualValues(0, lineCount)
	s.NotEmpty(s.storage.deleted)
}

func (s *RecipeServiceTestSuite) TestFavoriteLifecycle() {
	created := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})
	viewer := s.other.ID.String()

	summary, err := s.service.Favorite(context.Background(), created.ID, viewer)
	s.Require().NoError(err)
	s.Equal(created.Name, summary.Name)

	_, err = s.service.Favorite(context.Background(), created.ID, viewer)
	s.ErrorIs(err, domain.ErrAlreadyFavorited)

	detail, err := s.service.GetRecipeDetail(context.Background(), created.ID, viewer)
	s.Require().NoError(err)
	s.True(detail.IsFavorited)

	s.Require().NoError(s.service.Unfavorite(context.Background(), created.ID, viewer))
	err = s.service.Unfavorite(context.Background(), created.ID, viewer)
	s.ErrorIs(err, domain.ErrNotFavorited)
}

func (s *RecipeServiceTestSuite) TestShoppingCartLifecycle() {
	created := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})
	viewer := s.other.ID.String()

	_, err := s.service.AddToShoppingCart(context.Background(), created.ID, viewer)
	s.Require().NoError(err)

	_, err = s.service.AddToShoppingCart(context.Background(), created.ID, viewer)
	s.ErrorIs(err, domain.ErrAlreadyInCart)

	s.Require().NoError(s.service.RemoveFromShoppingCart(context.Background(), created.ID, viewer))
	err = s.service.RemoveFromShoppingCart(context.Background(), created.ID, viewer)
	s.ErrorIs(err, domain.ErrNotInCart)
}

func (s *RecipeServiceTestSuite) TestEdgeOperationsOnMissingRecipe() {
	viewer := s.other.ID.String()
	missing := uuid.NewString()

	_, err := s.service.Favorite(context.Background(), missing, viewer)
	s.ErrorIs(err, domain.ErrRecipeNotFound)
	_, err = s.service.AddToShoppingCart(context.Background(), missing, viewer)
	s.ErrorIs(err, domain.ErrRecipeNotFound)
}

func (s *RecipeServiceTestSuite) TestBuildShoppingListAggregates() {
	ctx := context.Background()
	first := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200},
		domain.IngredientLineRequest{IngredientID: s.sugar.ID.String(), Amount: 50},
	)
	second := s.createRecipe("Bread",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 100})

	viewer := s.other.ID.String()
	_, err := s.service.AddToShoppingCart(ctx, first.ID, viewer)
	s.Require().NoError(err)
	_, err = s.service.AddToShoppingCart(ctx, second.ID, viewer)
	s.Require().NoError(err)

	report, err := s.service.BuildShoppingList(ctx, viewer)
	s.Require().NoError(err)

	s.Equal("Shopping list:\n1. Flour - 300 g.\n2. Sugar - 50 g.\n", report)
}

func (s *RecipeServiceTestSuite) TestBuildShoppingListEmptyCart() {
	_, err := s.service.BuildShoppingList(context.Background(), s.other.ID.String())
	s.ErrorIs(err, domain.ErrShoppingCartEmpty)
}

func (s *RecipeServiceTestSuite) TestAnonymousViewerFlagsAreFalse() {
	created := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})

	_, err := s.service.Favorite(context.Background(), created.ID, s.other.ID.String())
	s.Require().NoError(err)

	detail, err := s.service.GetRecipeDetail(context.Background(), created.ID, "")
	s.Require().NoError(err)
	s.False(detail.IsFavorited)
	s.False(detail.IsInShoppingCart)
	s.False(detail.Author.IsSubscribed)
}

func (s *RecipeServiceTestSuite) TestGetRecipesFilters() {
	ctx := context.Background()
	dinner := s.createTag("Dinner", "#49B64E", "dinner")

	first := s.createRecipe("Pancakes",
		domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 200})

	req := domain.SaveRecipeRequest{
		Name:        "Soup",
		Text:        "boil it",
		CookingTime: 45,
		Image:       testImage,
		Tags:        []string{dinner.ID.String()},
		Ingredients: []domain.IngredientLineRequest{
			{IngredientID: s.sugar.ID.String(), Amount: 10},
		},
	}
	_, err := s.service.CreateRecipe(ctx, req, s.other.ID.String())
	s.Require().NoError(err)

	all, count, err := s.service.GetRecipes(ctx, domain.RecipeFilter{Page: 1, Limit: 10}, "")
	s.Require().NoError(err)
	s.EqualValues(2, count)
	s.Len(all, 2)

	byTag, count, err := s.service.GetRecipes(ctx, domain.RecipeFilter{
		Tags: []string{"dinner"}, Page: 1, Limit: 10,
	}, "")
	s.Require().NoError(err)
	s.EqualValues(1, count)
	s.Equal("Soup", byTag[0].Name)

	byAuthor, count, err := s.service.GetRecipes(ctx, domain.RecipeFilter{
		Authors: []string{s.author.Username}, Page: 1, Limit: 10,
	}, "")
	s.Require().NoError(err)
	s.EqualValues(1, count)
	s.Equal("Pancakes", byAuthor[0].Name)

	viewer := s.other.ID.String()
	_, err = s.service.Favorite(ctx, first.ID, viewer)
	s.Require().NoError(err)

	favorited, count, err := s.service.GetRecipes(ctx, domain.RecipeFilter{
		IsFavorited: true, Page: 1, Limit: 10,
	}, viewer)
	s.Require().NoError(err)
	s.EqualValues(1, count)
	s.Equal("Pancakes", favorited[0].Name)

	// anonymous viewers cannot use viewer-relative filters
	_, count, err = s.service.GetRecipes(ctx, domain.RecipeFilter{
		IsFavorited: true, Page: 1, Limit: 10,
	}, "")
	s.Require().NoError(err)
	s.EqualValues(2, count)
}

func (s *RecipeServiceTestSuite) TestGetRecipesPagination() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		req := s.saveRequest(fmt.Sprintf("Recipe %d", i),
			domain.IngredientLineRequest{IngredientID: s.flour.ID.String(), Amount: 10})
		_, err := s.service.CreateRecipe(ctx, req, s.author.ID.String())
		s.Require().NoError(err)
		time.Sleep(time.Millisecond)
	}

	page, count, err := s.service.GetRecipes(ctx, domain.RecipeFilter{Page: 2, Limit: 2}, "")
	s.Require().NoError(err)
	s.EqualValues(5, count)
	s.Len(page, 2)
}
