// Command reconcile recomputes every drifted like counter from the ledger
// and exits.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"blogspace/internal/bootstrap"
	"blogspace/internal/config"
	"blogspace/internal/repository"
	"blogspace/internal/service"
)

func main() {
	postID := flag.String("post", "", "Reconcile a single post by id")
	timeout := flag.Duration("timeout", 10*time.Minute, "Give up after this long")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	r := service.NewReconciler(repository.NewPostRepository(db), repository.NewLikeRepository(db))

	if *postID != "" {
		res, err := r.ReconcilePost(ctx, *postID)
		if err != nil {
			log.Fatalf("Reconcile failed: %v", err)
		}
		log.Printf("post=%s cached=%d actual=%d drifted=%t", res.PostID, res.Cached, res.Actual, res.Drifted)
		return
	}

	summary, err := r.ReconcileAll(ctx)
	if err != nil {
		log.Fatalf("Reconcile failed: %v", err)
	}
	log.Printf("drifted=%d repaired=%d", summary.Drifted, summary.Repaired)
}
