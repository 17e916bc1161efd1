package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"foodgram-backend/cmd/config"
	migration "foodgram-backend/cmd/database/migrate"
	"foodgram-backend/internal/utils"
	"foodgram-backend/pkg/catalog"
)

func main() {
	ingredientsPath := flag.String("ingredients", "", "path to ingredients csv (name,measurement_unit)")
	tagsPath := flag.String("tags", "", "path to tags csv (name,color,slug)")
	flag.Parse()

	if *ingredientsPath == "" && *tagsPath == "" {
		log.Fatal("nothing to seed, pass -ingredients and/or -tags")
	}

	utils.LoadConfig()

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("error connecting database: %v", err)
	}
	if err := migration.Migrate(db); err != nil {
		log.Fatalf("error migrating database: %v", err)
	}

	catalogService := catalog.NewCatalogService(catalog.NewCatalogRepository(db))
	ctx := context.Background()

	if *tagsPath != "" {
		created, err := catalogService.LoadTagsFromCSV(ctx, *tagsPath)
		if err != nil {
			log.Fatalf("error seeding tags: %v", err)
		}
		fmt.Printf("seeded %d new tags\n", created)
	}

	if *ingredientsPath != "" {
		created, err := catalogService.LoadIngredientsFromCSV(ctx, *ingredientsPath)
		if err != nil {
			log.Fatalf("error seeding ingredients: %v", err)
		}
		fmt.Printf("seeded %d new ingredients\n", created)
	}
}
