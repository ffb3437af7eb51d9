// Scans Redis for combat snapshots that no longer decode, reporting and
// optionally deleting them. Run after a schema change that was deployed
// without a migration.
//
// Usage: REDIS_URL=redis://localhost:6379 go run scripts/fix-corrupted-data.go [--delete]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
)

func main() {
	deleteCorrupted := len(os.Args) > 1 && os.Args[1] == "--delete"

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL:", err)
	}

	client := redis.NewClient(opt)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	fmt.Println("Connected to Redis:", redisURL)
	fmt.Println("Scanning combat snapshots...")

	iter := client.Scan(ctx, 0, "combat:*", 0).Iterator()

	var corruptedKeys []string
	var checkedCount int

	for iter.Next(ctx) {
		key := iter.Val()
		// Skip the campaign index sets
		if strings.HasPrefix(key, "combat:campaign:") {
			continue
		}
		checkedCount++

		data, err := client.Get(ctx, key).Result()
		if err != nil {
			fmt.Printf("  %s: unreadable: %v\n", key, err)
			corruptedKeys = append(corruptedKeys, key)
			continue
		}

		var state combatent.State
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			fmt.Printf("  %s: does not decode: %v\n", key, err)
			corruptedKeys = append(corruptedKeys, key)
			continue
		}
		if state.CombatID == "" || state.Phase == "" {
			fmt.Printf("  %s: decodes but is missing required fields\n", key)
			corruptedKeys = append(corruptedKeys, key)
		}
	}
	if err := iter.Err(); err != nil {
		log.Fatal("Scan failed:", err)
	}

	fmt.Printf("Checked %d snapshots, %d corrupted\n", checkedCount, len(corruptedKeys))

	if len(corruptedKeys) == 0 {
		return
	}
	if !deleteCorrupted {
		fmt.Println("Re-run with --delete to remove them")
		return
	}
	for _, key := range corruptedKeys {
		if err := client.Del(ctx, key).Err(); err != nil {
			fmt.Printf("  failed to delete %s: %v\n", key, err)
			continue
		}
		fmt.Printf("  deleted %s\n", key)
	}
}
