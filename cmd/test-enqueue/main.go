package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/internal/services/queue"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	queuePkg "github.com/jwebster45206/combat-engine/pkg/queue"
)

// Enqueues a small brawl: two fighters are spawned and one attacks the other.
func main() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	client, err := queue.NewClient(redisURL, logger.Discard())
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer client.Close()

	ctx := context.Background()
	q := queue.NewIntentQueue(client)

	fmt.Println("Connected to Redis successfully!")

	requests := []*queuePkg.IntentRequest{
		{Type: queuePkg.RequestTypeSpawn, Combatant: "brawler-1", FighterID: "brawler"},
		{Type: queuePkg.RequestTypeSpawn, Combatant: "bandit-1", FighterID: "bandit"},
		{
			Type:      queuePkg.RequestTypeIntent,
			Combatant: "brawler-1",
			Intent:    &combat.Intent{Kind: combat.IntentAttack, Target: "bandit-1"},
		},
	}

	for _, req := range requests {
		if err := q.Enqueue(ctx, req); err != nil {
			log.Fatalf("Failed to enqueue %s request: %v", req.Type, err)
		}
		fmt.Printf("✅ Enqueued %s request for %s: %s\n", req.Type, req.Combatant, req.RequestID)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}

	fmt.Printf("\n📊 Queue depth: %d requests\n", depth)
	fmt.Println("\n💡 Now start the worker to see it process these requests!")
	fmt.Println("   Run: go run cmd/worker/main.go")
}
