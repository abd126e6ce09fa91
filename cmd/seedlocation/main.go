// cmd/seedlocation creates or reactivates a boutique.
// Usage: go run ./cmd/seedlocation -name "Dakar Plateau" [-code dakar-plateau]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"mypostelma/internal/config"
	"mypostelma/internal/infra"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

func main() {
	name := flag.String("name", "Boutique principale", "display name")
	code := flag.String("code", "", "unique code (defaults to a slug of -name)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}

	c := *code
	if c == "" {
		c = *name
	}
	c = slug.Make(c)

	result := db.WithContext(context.Background()).Exec(`
		INSERT INTO locations (id, code, name, active, created_at)
		VALUES (?, ?, ?, true, ?)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
		    active = true
	`, uuid.New(), c, *name, time.Now().UTC())
	if result.Error != nil {
		log.Fatalf("insert error: %v", result.Error)
	}

	var id string
	if err := db.Raw(`SELECT id FROM locations WHERE code = ?`, c).Scan(&id).Error; err != nil {
		log.Fatalf("lookup error: %v", err)
	}
	fmt.Printf("boutique %q (%s) prête: %s\n", *name, c, id)
}
