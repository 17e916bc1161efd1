package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
)

type CatalogServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service CatalogService
}

func TestCatalogServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceTestSuite))
}

func (s *CatalogServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.Exec(`CREATE TABLE tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL UNIQUE,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	s.Require().NoError(db.Exec(`CREATE TABLE ingredients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		measurement_unit TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)

	s.db = db
	s.service = NewCatalogService(NewCatalogRepository(db))
}

func (s *CatalogServiceTestSuite) createIngredient(name, unit string) *entities.Ingredient {
	ingredient := &entities.Ingredient{ID: uuid.New(), Name: name, MeasurementUnit: unit}
	s.Require().NoError(s.db.Create(ingredient).Error)
	return ingredient
}

func (s *CatalogServiceTestSuite) TestGetTags() {
	tag := &entities.Tag{ID: uuid.New(), Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"}
	s.Require().NoError(s.db.Create(tag).Error)

	tags, err := s.service.GetTags(context.Background())
	s.Require().NoError(err)
	s.Require().Len(tags, 1)
	s.Equal("breakfast", tags[0].Slug)

	found, err := s.service.GetTagByID(context.Background(), tag.ID.String())
	s.Require().NoError(err)
	s.Equal("Breakfast", found.Name)

	_, err = s.service.GetTagByID(context.Background(), uuid.NewString())
	s.ErrorIs(err, domain.ErrTagNotFound)
}

func (s *CatalogServiceTestSuite) TestGetIngredientsPrefixFilter() {
	s.createIngredient("salt", "g")
	s.createIngredient("Salted butter", "g")
	s.createIngredient("sugar", "g")

	all, err := s.service.GetIngredients(context.Background(), "")
	s.Require().NoError(err)
	s.Len(all, 3)

	// prefix match is case-insensitive
	salty, err := s.service.GetIngredients(context.Background(), "SALT")
	s.Require().NoError(err)
	s.Len(salty, 2)

	none, err := s.service.GetIngredients(context.Background(), "pepper")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *CatalogServiceTestSuite) TestGetIngredientByID() {
	ingredient := s.createIngredient("salt", "g")

	found, err := s.service.GetIngredientByID(context.Background(), ingredient.ID.String())
	s.Require().NoError(err)
	s.Equal("salt", found.Name)
	s.Equal("g", found.MeasurementUnit)

	_, err = s.service.GetIngredientByID(context.Background(), uuid.NewString())
	s.ErrorIs(err, domain.ErrIngredientNotFound)
}

func (s *CatalogServiceTestSuite) TestLoadIngredientsFromCSV() {
	path := filepath.Join(s.T().TempDir(), "ingredients.csv")
	content := "flour,g\nsugar,g\nmilk,ml\n"
	s.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	created, err := s.service.LoadIngredientsFromCSV(context.Background(), path)
	s.Require().NoError(err)
	s.Equal(3, created)

	// a second import of the same file creates nothing
	created, err = s.service.LoadIngredientsFromCSV(context.Background(), path)
	s.Require().NoError(err)
	s.Equal(0, created)

	var count int64
	s.Require().NoError(s.db.Model(&entities.Ingredient{}).Count(&count).Error)
	s.EqualValues(3, count)
}

func (s *CatalogServiceTestSuite) TestLoadTagsFromCSV() {
	path := filepath.Join(s.T().TempDir(), "tags.csv")
	content := "Breakfast,#E26C2D,breakfast\nDinner,#49B64E,dinner\n"
	s.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	created, err := s.service.LoadTagsFromCSV(context.Background(), path)
	s.Require().NoError(err)
	s.Equal(2, created)

	created, err = s.service.LoadTagsFromCSV(context.Background(), path)
	s.Require().NoError(err)
	s.Equal(0, created)

	tags, err := s.service.GetTags(context.Background())
	s.Require().NoError(err)
	s.Len(tags, 2)
}

func (s *CatalogServiceTestSuite) TestLoadCSVRejectsMalformedRows() {
	path := filepath.Join(s.T().TempDir(), "ingredients.csv")
	content := "flour,g\nbroken-row\n"
	s.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	_, err := s.service.LoadIngredientsFromCSV(context.Background(), path)
	s.Error(err)
}
