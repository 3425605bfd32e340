// Command main runs the database seeder for Snapgram.
package main

import (
	"flag"
	"log"

	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numStories := flag.Int("stories", 100, "Number of stories to create")
	expiredRatio := flag.Float64("expired", 0.2, "Fraction of stories seeded already expired")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:     *numUsers,
		NumStories:   *numStories,
		ShouldClean:  *shouldClean,
		ExpiredRatio: *expiredRatio,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
