// Command seed writes demo user profiles and a spread of back-dated alert
// history into the local SQLite database so the API has data to serve out of
// the box. It goes through the actual store package, so seeded rows match
// what the service writes at runtime.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -db ./allergy.db -history 0
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/pollenguard/allergy-risk/internal/adapter/sqlite"
	"github.com/pollenguard/allergy-risk/internal/config"
	"github.com/pollenguard/allergy-risk/internal/domain"
)

// Profile IDs are fixed so re-runs stay idempotent and the IDs can be pasted
// straight into requests.
var demoProfiles = []domain.UserProfile{
	{ID: "demo-ana", Email: "ana@example.com", Allergies: []string{"Grass Pollen", "Ragweed"}, SensitivityLevel: 8},
	{ID: "demo-bo", Email: "bo@example.com", Allergies: []string{"Dust Mites"}, SensitivityLevel: 4},
	{ID: "demo-kim", Email: "kim@example.com", Allergies: []string{"Tree Pollen", "Mold Spores", "Pet Dander"}, SensitivityLevel: 6},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "", "database path (defaults to DATABASE_PATH from the environment)")
	history := flag.Int("history", 7, "days of demo alert history for the first profile, 0 to skip")
	flag.Parse()

	path := *dbPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cfg.PersistenceEnabled {
			return fmt.Errorf("no database configured: set DATABASE_PATH or pass -db")
		}
		path = cfg.DatabasePath
	}

	store, err := sqlite.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	for _, p := range demoProfiles {
		if _, err := store.UpsertUserProfile(ctx, p); err != nil {
			return fmt.Errorf("seeding %s: %w", p.ID, err)
		}
		log.Printf("profile %s: %d allergies, sensitivity %d", p.ID, len(p.Allergies), p.SensitivityLevel)
	}

	if *history > 0 {
		n, err := seedHistory(ctx, store, demoProfiles[0].ID, *history)
		if err != nil {
			return fmt.Errorf("seeding history: %w", err)
		}
		log.Printf("alert history for %s: %d entries", demoProfiles[0].ID, n)
	}

	printSummary(path)
	return nil
}

// seedHistory back-dates one alert per day so the history endpoint shows a
// spread of risk levels and locations. Each run appends a fresh batch; the
// retention sweep clears old ones eventually.
func seedHistory(ctx context.Context, store *sqlite.Store, userID string, days int) (int, error) {
	levels := []string{domain.RiskLow, domain.RiskModerate, domain.RiskHigh, domain.RiskModerate}
	locations := []string{"Berlin", "Austin, TX", "Berlin", "Paris"}

	now := time.Now().UTC()
	for i := days; i >= 1; i-- {
		k := i % len(levels)
		entry := domain.AlertEntry{
			UserID:    userID,
			Location:  locations[k],
			RiskLevel: levels[k],
			Snapshot: domain.EnvironmentalSnapshot{
				LocationName: locations[k],
				AQI:          float64(40 + 30*k),
				PM25:         float64(8 + 7*k),
				PM10:         float64(15 + 12*k),
				Pollen:       domain.PollenCount{Grass: float64(2 * k), Tree: float64(k), Weed: float64(k) / 2},
				Status:       domain.StatusLive,
			},
			CreatedAt: now.Add(-time.Duration(i) * 24 * time.Hour),
		}
		if _, err := store.LogAlert(ctx, entry); err != nil {
			return 0, err
		}
	}
	return days, nil
}

func printSummary(path string) {
	fmt.Println("\n=== Demo data ready ===")
	fmt.Printf("Database: %s\n", path)
	fmt.Println("Profiles:")
	for _, p := range demoProfiles {
		fmt.Printf("  %-10s %-18s sensitivity=%d  %s\n",
			p.ID, p.Email, p.SensitivityLevel, strings.Join(p.Allergies, ", "))
	}
	fmt.Println("\nTry it:")
	fmt.Printf("  curl -s localhost:8080/api/users/%s/alerts\n", demoProfiles[0].ID)
	fmt.Printf("  curl -s -X POST localhost:8080/api/check-risk -H 'Content-Type: application/json' -d '{\"location\": \"Berlin\", \"user_id\": \"%s\"}'\n",
		demoProfiles[0].ID)
}
