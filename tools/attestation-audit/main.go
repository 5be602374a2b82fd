// Command attestation-audit decrypts one payment attestation for an auditor.
//
//	attestation-audit -id 3f1c...
//
// Database settings are read from the same POSTGRES_* variables as the
// service; the key from ENCRYPTION_KEY.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/GuilhermeXavier08/mythic/attestation"
	"github.com/GuilhermeXavier08/mythic/database"
	"github.com/GuilhermeXavier08/mythic/repository"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	var rawID string
	flag.StringVar(&rawID, "id", "", "attestation id")
	flag.Parse()

	id, err := uuid.Parse(rawID)
	if err != nil {
		log.Fatalf("invalid -id: %v", err)
	}

	sealer, err := attestation.NewSealer([]byte(os.Getenv("ENCRYPTION_KEY")))
	if err != nil {
		log.Fatalf("encryption key: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.ConnectPostgres(ctx, database.PostgresConfig{
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     envOr("POSTGRES_PORT", "5432"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		DBName:   os.Getenv("POSTGRES_DB"),
		SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
		TimeZone: envOr("POSTGRES_TIMEZONE", "UTC"),
	}, zap.NewNop())
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer database.Close(db)

	a, err := repository.NewGormAttestationRepository(db).FindByID(ctx, id)
	if err != nil {
		log.Fatalf("load attestation %s: %v", id, err)
	}
	fields, err := sealer.OpenFields(a)
	if err != nil {
		log.Fatalf("decrypt attestation %s: %v", id, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(struct {
		ID        uuid.UUID `json:"id"`
		UserID    uuid.UUID `json:"user_id"`
		CreatedAt time.Time `json:"created_at"`
		Name      string    `json:"name"`
		Number    string    `json:"number"`
		Expiry    string    `json:"expiry"`
		CVV       string    `json:"cvv"`
	}{a.ID, a.UserID, a.CreatedAt, fields.Name, fields.Number, fields.Expiry, fields.CVV})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
