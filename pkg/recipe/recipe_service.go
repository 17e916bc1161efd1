package recipe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/internal/utils/storage"
	"foodgram-backend/pkg/catalog"
	"foodgram-backend/pkg/user"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 360
	MinAmount      = 1
	MaxAmount      = 1000
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.SaveRecipeRequest, authorID string) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID string, req domain.SaveRecipeRequest, actorID string) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID string, actorID string) error
		GetRecipeDetail(ctx context.Context, recipeID string, viewerID string) (domain.RecipeResponse, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string) ([]domain.RecipeResponse, int64, error)

		Favorite(ctx context.Context, recipeID, userID string) (domain.RecipeSummary, error)
		Unfavorite(ctx context.Context, recipeID, userID string) error
		AddToShoppingCart(ctx context.Context, recipeID, userID string) (domain.RecipeSummary, error)
		RemoveFromShoppingCart(ctx context.Context, recipeID, userID string) error

		BuildShoppingList(ctx context.Context, userID string) (string, error)
	}

	recipeService struct {
		recipeRepository  RecipeRepository
		catalogRepository catalog.CatalogRepository
		userRepository    user.UserRepository
		s3                storage.AwsS3
	}

	// validated aggregate input, resolved against the catalog
	aggregateInput struct {
		tags      []*entities.Tag
		imageData []byte
		imageType string
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	catalogRepository catalog.CatalogRepository,
	userRepository user.UserRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:  recipeRepository,
		catalogRepository: catalogRepository,
		userRepository:    userRepository,
		s3:                s3,
	}
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.SaveRecipeRequest, authorID string) (domain.RecipeResponse, error) {
	input, err := s.validateAggregate(ctx, req)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	authorUUID, err := uuid.Parse(authorID)
	if err != nil {
		return domain.RecipeResponse{}, domain.ErrParseUUID
	}

	if _, err := s.recipeRepository.GetRecipeByAuthorAndName(ctx, authorID, req.Name); err == nil {
		return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RecipeResponse{}, err
	}

	recipeID := uuid.New()

	objectKey, err := s.s3.UploadBytes(
		fmt.Sprintf("recipe-%s", recipeID.String()),
		input.imageData,
		input.imageType,
		"recipes",
	)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe := &entities.Recipe{
		ID:          recipeID,
		AuthorID:    authorUUID,
		Name:        req.Name,
		ImageURL:    s.s3.GetPublicLinkKey(objectKey),
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Tags:        input.tags,
	}
	lines := buildLines(recipeID, req.Ingredients)

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, lines); err != nil {
		// On a failed transaction the uploaded image is orphaned; remove it.
		_ = s.s3.DeleteFile(objectKey)
		return domain.RecipeResponse{}, err
	}

	created, err := s.recipeRepository.GetRecipeByID(ctx, recipeID.String())
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	return s.toRecipeResponse(ctx, created, authorID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID string, req domain.SaveRecipeRequest, actorID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	if recipe.AuthorID.String() != actorID {
		return domain.RecipeResponse{}, domain.ErrUnauthorizedRecipeAccess
	}

	// Validation precedes every mutation.
	input, err := s.validateAggregate(ctx, req)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	if existing, err := s.recipeRepository.GetRecipeByAuthorAndName(ctx, actorID, req.Name); err == nil {
		if existing.ID != recipe.ID {
			return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RecipeResponse{}, err
	}

	oldKey := s.s3.GetObjectKeyFromLink(recipe.ImageURL)
	objectKey, err := s.s3.UploadBytes(
		fmt.Sprintf("recipe-%s-%d", recipe.ID.String(), time.Now().Unix()),
		input.imageData,
		input.imageType,
		"recipes",
	)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime
	recipe.ImageURL = s.s3.GetPublicLinkKey(objectKey)
	lines := buildLines(recipe.ID, req.Ingredients)

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, lines, input.tags); err != nil {
		_ = s.s3.DeleteFile(objectKey)
		return domain.RecipeResponse{}, err
	}

	if oldKey != "" && oldKey != objectKey {
		_ = s.s3.DeleteFile(oldKey)
	}

	updated, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	return s.toRecipeResponse(ctx, updated, actorID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID string, actorID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID.String() != actorID {
		return domain.ErrUnauthorizedRecipeAccess
	}

	imageKey := s.s3.GetObjectKeyFromLink(recipe.ImageURL)

	if err := s.recipeRepository.DeleteRecipe(ctx, recipe); err != nil {
		return err
	}

	if imageKey != "" {
		_ = s.s3.DeleteFile(imageKey)
	}
	return nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, recipeID string, viewerID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	return s.toRecipeResponse(ctx, recipe, viewerID)
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string) ([]domain.RecipeResponse, int64, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, viewerID)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		res, err := s.toRecipeResponse(ctx, r, viewerID)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, res)
	}

	return result, count, nil
}

func (s *recipeService) Favorite(ctx context.Context, recipeID, userID string) (domain.RecipeSummary, error) {
	recipe, err := s.getRecipeForEdge(ctx, recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}

	isFavorited, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	if isFavorited {
		return domain.RecipeSummary{}, domain.ErrAlreadyFavorited
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeSummary{}, domain.ErrParseUUID
	}

	favorite := &entities.Favorite{
		ID:        uuid.New(),
		UserID:    userUUID,
		RecipeID:  recipe.ID,
		CreatedAt: time.Now(),
	}
	if err := s.recipeRepository.AddFavorite(ctx, favorite); err != nil {
		return domain.RecipeSummary{}, err
	}

	return toRecipeSummary(recipe), nil
}

func (s *recipeService) Unfavorite(ctx context.Context, recipeID, userID string) error {
	if _, err := s.getRecipeForEdge(ctx, recipeID); err != nil {
		return err
	}

	favorite, err := s.recipeRepository.GetFavorite(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFavorited
		}
		return err
	}

	return s.recipeRepository.DeleteFavorite(ctx, favorite)
}

func (s *recipeService) AddToShoppingCart(ctx context.Context, recipeID, userID string) (domain.RecipeSummary, error) {
	recipe, err := s.getRecipeForEdge(ctx, recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}

	inCart, err := s.recipeRepository.IsInCart(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}
	if inCart {
		return domain.RecipeSummary{}, domain.ErrAlreadyInCart
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeSummary{}, domain.ErrParseUUID
	}

	item := &entities.ShoppingCart{
		ID:        uuid.New(),
		UserID:    userUUID,
		RecipeID:  recipe.ID,
		CreatedAt: time.Now(),
	}
	if err := s.recipeRepository.AddToCart(ctx, item); err != nil {
		return domain.RecipeSummary{}, err
	}

	return toRecipeSummary(recipe), nil
}

func (s *recipeService) RemoveFromShoppingCart(ctx context.Context, recipeID, userID string) error {
	if _, err := s.getRecipeForEdge(ctx, recipeID); err != nil {
		return err
	}

	item, err := s.recipeRepository.GetCartItem(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotInCart
		}
		return err
	}

	return s.recipeRepository.DeleteCartItem(ctx, item)
}

// BuildShoppingList renders the aggregated cart contents as a numbered,
// line-oriented text report. An empty cart is an error, not an empty report.
func (s *recipeService) BuildShoppingList(ctx context.Context, userID string) (string, error) {
	items, err := s.recipeRepository.GetShoppingList(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", domain.ErrShoppingCartEmpty
	}

	var b strings.Builder
	b.WriteString("Shopping list:\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s - %d %s.\n",
			i+1, capitalize(item.Name), item.TotalAmount, item.MeasurementUnit)
	}
	return b.String(), nil
}

// validateAggregate enforces every precondition of the recipe write path
// before anything is persisted: decodable image, resolvable non-empty tag
// set, resolvable non-empty ingredient set without duplicates, and bounds
// on cooking time and amounts.
func (s *recipeService) validateAggregate(ctx context.Context, req domain.SaveRecipeRequest) (aggregateInput, error) {
	if req.CookingTime < MinCookingTime || req.CookingTime > MaxCookingTime {
		return aggregateInput{}, domain.ErrCookingTimeOutOfRange
	}

	if strings.TrimSpace(req.Image) == "" {
		return aggregateInput{}, domain.ErrImageRequired
	}
	imageData, imageType, err := decodeBase64Image(req.Image)
	if err != nil {
		return aggregateInput{}, err
	}

	if len(req.Tags) == 0 {
		return aggregateInput{}, domain.ErrTagsRequired
	}
	tags, err := s.catalogRepository.GetTagsByIDs(ctx, req.Tags)
	if err != nil {
		return aggregateInput{}, err
	}
	if len(tags) != len(uniqueStrings(req.Tags)) {
		return aggregateInput{}, domain.ErrTagNotFound
	}

	if len(req.Ingredients) == 0 {
		return aggregateInput{}, domain.ErrIngredientsRequired
	}
	ids := make([]string, 0, len(req.Ingredients))
	seen := make(map[string]bool, len(req.Ingredients))
	for _, line := range req.Ingredients {
		if line.Amount < MinAmount || line.Amount > MaxAmount {
			return aggregateInput{}, domain.ErrAmountOutOfRange
		}
		if seen[line.IngredientID] {
			return aggregateInput{}, domain.ErrDuplicateIngredient
		}
		seen[line.IngredientID] = true
		ids = append(ids, line.IngredientID)
	}
	ingredients, err := s.catalogRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return aggregateInput{}, err
	}
	if len(ingredients) != len(ids) {
		return aggregateInput{}, domain.ErrIngredientNotFound
	}

	return aggregateInput{
		tags:      tags,
		imageData: imageData,
		imageType: imageType,
	}, nil
}

func (s *recipeService) getRecipeForEdge(ctx context.Context, recipeID string) (*entities.Recipe, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}
	return recipe, nil
}

func (s *recipeService) toRecipeResponse(ctx context.Context, recipe *entities.Recipe, viewerID string) (domain.RecipeResponse, error) {
	isFavorited := false
	isInCart := false
	isSubscribed := false

	if viewerID != "" {
		var err error
		if isFavorited, err = s.recipeRepository.IsFavorited(ctx, viewerID, recipe.ID.String()); err != nil {
			return domain.RecipeResponse{}, err
		}
		if isInCart, err = s.recipeRepository.IsInCart(ctx, viewerID, recipe.ID.String()); err != nil {
			return domain.RecipeResponse{}, err
		}
		if isSubscribed, err = s.userRepository.IsSubscribed(ctx, recipe.AuthorID.String(), viewerID); err != nil {
			return domain.RecipeResponse{}, err
		}
	}

	author := domain.UserResponse{ID: recipe.AuthorID.String(), IsSubscribed: isSubscribed}
	if recipe.Author != nil {
		author.Email = recipe.Author.Email
		author.Username = recipe.Author.Username
		author.FirstName = recipe.Author.FirstName
		author.LastName = recipe.Author.LastName
	}

	tags := make([]domain.TagResponse, 0, len(recipe.Tags))
	for _, tag := range recipe.Tags {
		tags = append(tags, domain.TagResponse{
			ID:    tag.ID.String(),
			Name:  tag.Name,
			Color: tag.Color,
			Slug:  tag.Slug,
		})
	}

	ingredients := make([]domain.RecipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, line := range recipe.Ingredients {
		res := domain.RecipeIngredientResponse{
			ID:     line.IngredientID.String(),
			Amount: line.Amount,
		}
		if line.Ingredient != nil {
			res.Name = line.Ingredient.Name
			res.MeasurementUnit = line.Ingredient.MeasurementUnit
		}
		ingredients = append(ingredients, res)
	}

	return domain.RecipeResponse{
		ID:               recipe.ID.String(),
		Author:           author,
		Tags:             tags,
		Ingredients:      ingredients,
		IsFavorited:      isFavorited,
		IsInShoppingCart: isInCart,
		Name:             recipe.Name,
		ImageURL:         recipe.ImageURL,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
		CreatedAt:        recipe.CreatedAt,
	}, nil
}

func buildLines(recipeID uuid.UUID, reqLines []domain.IngredientLineRequest) []*entities.RecipeIngredient {
	lines := make([]*entities.RecipeIngredient, 0, len(reqLines))
	for _, line := range reqLines {
		lines = append(lines, &entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: uuid.MustParse(line.IngredientID),
			Amount:       line.Amount,
		})
	}
	return lines
}

func toRecipeSummary(recipe *entities.Recipe) domain.RecipeSummary {
	return domain.RecipeSummary{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		ImageURL:    recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}

// decodeBase64Image accepts either a data URI ("data:image/png;base64,...")
// or a bare base64 payload, returning the raw bytes and detected content type.
func decodeBase64Image(image string) ([]byte, string, error) {
	payload := image
	if strings.HasPrefix(image, "data:") {
		parts := strings.SplitN(image, ",", 2)
		if len(parts) != 2 {
			return nil, "", domain.ErrImageNotDecodable
		}
		payload = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", domain.ErrImageNotDecodable
	}

	contentType := http.DetectContentType(data)
	for _, allowed := range storage.AllowImage {
		if contentType == allowed {
			return data, contentType, nil
		}
	}
	return nil, "", domain.ErrImageNotDecodable
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
