package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetRecipes       = "success get recipes"
	MessageSuccessGetRecipeDetail  = "success get recipe detail"
	MessageSuccessSaveRecipe       = "recipe saved successfully"
	MessageSuccessDeleteRecipe     = "recipe deleted successfully"
	MessageSuccessFavorite         = "recipe added to favorites"
	MessageSuccessUnfavorite       = "recipe removed from favorites"
	MessageSuccessAddToCart        = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart   = "recipe removed from shopping cart"
	MessageSuccessDownloadShopping = "shopping list generated"

	MessageFailedGetRecipes       = "failed to get recipes"
	MessageFailedGetRecipeDetail  = "failed to get recipe detail"
	MessageFailedSaveRecipe       = "failed to save recipe"
	MessageFailedDeleteRecipe     = "failed to delete recipe"
	MessageFailedFavorite         = "failed to add recipe to favorites"
	MessageFailedUnfavorite       = "failed to remove recipe from favorites"
	MessageFailedAddToCart        = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart   = "failed to remove recipe from shopping cart"
	MessageFailedDownloadShopping = "failed to generate shopping list"

	ErrRecipeNotFound           = errors.New("recipe not found")
	ErrUnauthorizedRecipeAccess = errors.New("unauthorized access to recipe")
	ErrRecipeNameTaken          = errors.New("recipe with this name already exists for the author")
	ErrImageRequired            = errors.New("image field is empty")
	ErrImageNotDecodable        = errors.New("image is not a valid base64 encoded file")
	ErrTagsRequired             = errors.New("tags field is empty")
	ErrIngredientsRequired      = errors.New("ingredients field is empty")
	ErrDuplicateIngredient      = errors.New("duplicate ingredient in recipe")
	ErrCookingTimeOutOfRange    = errors.New("cooking time must be between 1 and 360 minutes")
	ErrAmountOutOfRange         = errors.New("ingredient amount must be between 1 and 1000")
	ErrAlreadyFavorited         = errors.New("recipe already added to favorites")
	ErrNotFavorited             = errors.New("recipe is not in favorites")
	ErrAlreadyInCart            = errors.New("recipe already added to shopping cart")
	ErrNotInCart                = errors.New("recipe is not in shopping cart")
	ErrShoppingCartEmpty        = errors.New("shopping cart is empty")
)

type (
	IngredientLineRequest struct {
		IngredientID string `json:"id" validate:"required,uuid"`
		Amount       int    `json:"amount" validate:"required,min=1,max=1000"`
	}

	SaveRecipeRequest struct {
		Name        string                  `json:"name" validate:"required,max=250"`
		Text        string                  `json:"text" validate:"required"`
		CookingTime int                     `json:"cooking_time" validate:"required,min=1,max=360"`
		Image       string                  `json:"image" validate:"required"`
		Tags        []string                `json:"tags" validate:"required,min=1,dive,uuid"`
		Ingredients []IngredientLineRequest `json:"ingredients" validate:"required,min=1,dive"`
	}

	RecipeIngredientResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               string                     `json:"id"`
		Author           UserResponse               `json:"author"`
		Tags             []TagResponse              `json:"tags"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
		Name             string                     `json:"name"`
		ImageURL         string                     `json:"image"`
		Text             string                     `json:"text"`
		CookingTime      int                        `json:"cooking_time"`
		CreatedAt        time.Time                  `json:"created_at"`
	}

	// RecipeSummary is the compact shape returned by the edge endpoints and
	// nested inside subscription responses.
	RecipeSummary struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ImageURL    string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeFilter struct {
		Tags             []string
		Authors          []string
		IsFavorited      bool
		IsInShoppingCart bool
		Page             int
		Limit            int
	}

	ShoppingListItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		TotalAmount     int    `json:"total_amount"`
	}
)
