package recipe

import (
	"context"

	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe, lines []*entities.RecipeIngredient) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, lines []*entities.RecipeIngredient, tags []*entities.Tag) error
		DeleteRecipe(ctx context.Context, recipe *entities.Recipe) error
		GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error)
		GetRecipeByAuthorAndName(ctx context.Context, authorID, name string) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string) ([]*entities.Recipe, int64, error)

		AddFavorite(ctx context.Context, favorite *entities.Favorite) error
		GetFavorite(ctx context.Context, userID, recipeID string) (*entities.Favorite, error)
		DeleteFavorite(ctx context.Context, favorite *entities.Favorite) error
		IsFavorited(ctx context.Context, userID, recipeID string) (bool, error)

		AddToCart(ctx context.Context, item *entities.ShoppingCart) error
		GetCartItem(ctx context.Context, userID, recipeID string) (*entities.ShoppingCart, error)
		DeleteCartItem(ctx context.Context, item *entities.ShoppingCart) error
		IsInCart(ctx context.Context, userID, recipeID string) (bool, error)

		GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

// CreateRecipe persists the recipe row, its tag associations and its
// ingredient lines as one transaction.
func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, lines []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return err
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		return nil
	})
}

// UpdateRecipe applies full-replace semantics: editable fields are saved,
// the tag set is reset and all ingredient lines are deleted and recreated,
// atomically.
func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, lines []*entities.RecipeIngredient, tags []*entities.Tag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Recipe{}).
			Where("id = ?", recipe.ID).
			Updates(map[string]interface{}{
				"name":         recipe.Name,
				"image_url":    recipe.ImageURL,
				"text":         recipe.Text,
				"cooking_time": recipe.CookingTime,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).
			Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		return nil
	})
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, recipe *entities.Recipe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).
			Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).
			Delete(&entities.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).
			Delete(&entities.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(recipe).Error
	})
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Where("id = ?", id).
		First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipeByAuthorAndName(ctx context.Context, authorID, name string) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Where("author_id = ? AND name = ?", authorID, name).
		First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64
	offset := (filter.Page - 1) * filter.Limit

	base := r.db.WithContext(ctx).Model(&entities.Recipe{})

	if len(filter.Tags) > 0 {
		base = base.Where("recipes.id IN (?)", r.db.
			Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.Tags))
	}
	if len(filter.Authors) > 0 {
		base = base.Where("recipes.author_id IN (?)", r.db.
			Table("users").
			Select("users.id").
			Where("users.username IN ?", filter.Authors))
	}
	// Viewer-relative filters only apply for authenticated viewers.
	if filter.IsFavorited && viewerID != "" {
		base = base.Where("recipes.id IN (?)", r.db.
			Table("favorites").
			Select("favorites.recipe_id").
			Where("favorites.user_id = ?", viewerID))
	}
	if filter.IsInShoppingCart && viewerID != "" {
		base = base.Where("recipes.id IN (?)", r.db.
			Table("shopping_carts").
			Select("shopping_carts.recipe_id").
			Where("shopping_carts.user_id = ?", viewerID))
	}

	if err := base.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := base.
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Offset(offset).
		Limit(filter.Limit).
		Order("created_at desc").
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

func (r *recipeRepository) AddFavorite(ctx context.Context, favorite *entities.Favorite) error {
	return r.db.WithContext(ctx).Create(favorite).Error
}

func (r *recipeRepository) GetFavorite(ctx context.Context, userID, recipeID string) (*entities.Favorite, error) {
	var favorite entities.Favorite
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		First(&favorite).Error; err != nil {
		return nil, err
	}
	return &favorite, nil
}

func (r *recipeRepository) DeleteFavorite(ctx context.Context, favorite *entities.Favorite) error {
	return r.db.WithContext(ctx).Delete(favorite).Error
}

func (r *recipeRepository) IsFavorited(ctx context.Context, userID, recipeID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Favorite{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) AddToCart(ctx context.Context, item *entities.ShoppingCart) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *recipeRepository) GetCartItem(ctx context.Context, userID, recipeID string) (*entities.ShoppingCart, error) {
	var item entities.ShoppingCart
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *recipeRepository) DeleteCartItem(ctx context.Context, item *entities.ShoppingCart) error {
	return r.db.WithContext(ctx).Delete(item).Error
}

func (r *recipeRepository) IsInCart(ctx context.Context, userID, recipeID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.ShoppingCart{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetShoppingList aggregates ingredient lines across every recipe in the
// user's cart: lines sharing name and measurement unit collapse into one
// row with the summed amount.
func (r *recipeRepository) GetShoppingList(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	var items []domain.ShoppingListItem
	if err := r.db.WithContext(ctx).
		Model(&entities.RecipeIngredient{}).
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name asc").
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
