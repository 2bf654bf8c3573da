// Command main runs the database seeder for MedFeed.
package main

import (
	"context"
	"flag"
	"log"

	"medfeed/internal/config"
	"medfeed/internal/database"
	"medfeed/internal/seed"
)

func main() {
	numDoctors := flag.Int("doctors", 40, "Number of doctors to create")
	numPosts := flag.Int("posts", 150, "Number of posts to create")
	maxComments := flag.Int("comments", 8, "Maximum comments per post")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("rand-seed", 0, "Seed for the data generator (0 picks one at random)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")
	log.Printf("Target: %d doctors, %d posts, clean=%v\n", *numDoctors, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sum, err := seed.NewSeeder(db, *randSeed).Seed(context.Background(), seed.Options{
		NumDoctors:         *numDoctors,
		NumPosts:           *numPosts,
		MaxCommentsPerPost: *maxComments,
		ShouldClean:        *shouldClean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d doctors, %d groups, %d posts, %d comments, %d likes, %d saves, %d votes",
		sum.Doctors, sum.Groups, sum.Posts, sum.Comments, sum.Likes, sum.Saves, sum.Votes)
}
