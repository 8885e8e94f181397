// Command seed writes the default categories and, optionally, demo content.
package main

import (
	"context"
	"flag"
	"log"

	"blogspace/internal/config"
	"blogspace/internal/database"
	"blogspace/internal/seed"
)

func main() {
	demo := flag.Bool("demo", false, "Also create fake users, posts, likes and comments")
	numUsers := flag.Int("users", 20, "Number of demo users to create")
	numPosts := flag.Int("posts", 80, "Number of demo posts to create")
	maxLikes := flag.Int("max-likes", 15, "Maximum likes per published post")
	maxComments := flag.Int("max-comments", 6, "Maximum comments per published post")
	randomSeed := flag.Int64("seed", 0, "Random seed; 0 picks one")
	shouldClean := flag.Bool("clean", false, "Delete existing posts, comments and likes first")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db)

	if !*demo {
		categories, err := s.Categories(ctx, cfg.CategoriesFile)
		if err != nil {
			log.Fatalf("Category seeding failed: %v", err)
		}
		log.Printf("%d categories ensured", len(categories))
		return
	}

	result, err := s.Demo(ctx, seed.Options{
		NumUsers:       *numUsers,
		NumPosts:       *numPosts,
		MaxLikes:       *maxLikes,
		MaxComments:    *maxComments,
		RandomSeed:     *randomSeed,
		ShouldClean:    *shouldClean,
		CategoriesFile: cfg.CategoriesFile,
	})
	if err != nil {
		log.Fatalf("Demo seeding failed: %v", err)
	}
	log.Printf("seeded %d categories, %d users, %d posts, %d likes, %d comments",
		result.Categories, result.Users, result.Posts, result.Likes, result.Comments)
}
