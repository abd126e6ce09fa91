// cmd/devtoken prints a signed access token for local testing.
// Usage: JWT_SECRET=... go run ./cmd/devtoken -role superviseur
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"mypostelma/internal/config"
	"mypostelma/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	role := flag.String("role", middleware.RoleCashier, "caissier | superviseur | administrateur")
	user := flag.String("user", "", "user id (random when empty)")
	username := flag.String("username", "dev", "username claim")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	uid := *user
	if uid == "" {
		uid = uuid.NewString()
	}
	now := time.Now()
	token, err := middleware.SignToken(cfg.JWTSecret, middleware.JWTClaims{
		UserID:   uid,
		Username: *username,
		Rol:      *role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	})
	if err != nil {
		log.Fatalf("sign error: %v", err)
	}
	fmt.Println(token)
}
