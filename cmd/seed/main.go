package main

import (
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/foodgram-project/backend/config"
	"github.com/foodgram-project/backend/internal/database"
	"github.com/foodgram-project/backend/internal/models"
)

// defaultTags is the fixed product tag set.
var defaultTags = []models.Tag{
	{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
	{Name: "Lunch", Color: "#49B64E", Slug: "lunch"},
	{Name: "Dinner", Color: "#8775D2", Slug: "dinner"},
}

func main() {
	ingredientsPath := flag.String("ingredients", "data/ingredients.csv", "CSV file with name,measurement_unit rows")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	for _, tag := range defaultTags {
		if err := db.Where(models.Tag{Slug: tag.Slug}).FirstOrCreate(&tag).Error; err != nil {
			log.Fatalf("Failed to seed tag %s: %v", tag.Slug, err)
		}
	}
	log.Printf("Seeded %d tags", len(defaultTags))

	file, err := os.Open(*ingredientsPath)
	if err != nil {
		log.Fatalf("Failed to open ingredients file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2

	seeded := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read ingredients CSV: %v", err)
		}

		ingredient := models.Ingredient{Name: record[0], MeasurementUnit: record[1]}
		if err := db.Where(ingredient).FirstOrCreate(&ingredient).Error; err != nil {
			log.Fatalf("Failed to seed ingredient %q: %v", record[0], err)
		}
		seeded++
	}
	log.Printf("Seeded %d ingredients", seeded)
}
