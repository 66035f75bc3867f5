package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/leadradar/internal/database"
	"github.com/wolfman30/leadradar/internal/forms"
	"github.com/wolfman30/leadradar/pkg/logging"
)

// exampleFields mirror the example form used for local development.
var exampleFields = []forms.CreateFieldRequest{
	{Key: "firstName", Label: "First name", Type: forms.FieldText, Required: true},
	{Key: "lastName", Label: "Last name", Type: forms.FieldText, Required: true},
	{Key: "email", Label: "Email", Type: forms.FieldText},
}

func main() {
	_ = godotenv.Load()

	reset := flag.Bool("reset", false, "delete existing leads, forms and events before seeding")
	flag.Parse()

	logger := logging.New(os.Getenv("LOG_LEVEL"))
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.MigrateUp(db.SQL); err != nil {
		logger.Error("failed to migrate", "error", err)
		os.Exit(1)
	}

	if *reset {
		if err := resetData(ctx, db.Pool); err != nil {
			logger.Error("failed to reset data", "error", err)
			os.Exit(1)
		}
		logger.Info("existing leads, forms and events deleted")
	}

	form, err := seedForm(ctx, forms.NewPostgresRepository(db.Pool))
	if err != nil {
		logger.Error("failed to seed form", "error", err)
		os.Exit(1)
	}
	eventID, userID, err := seedReferences(ctx, db.Pool)
	if err != nil {
		logger.Error("failed to seed event and user", "error", err)
		os.Exit(1)
	}

	logger.Info("seed finished", "form_id", form.ID, "event_id", eventID, "user_id", userID)
	fmt.Printf("Seed finished. Created form with id %d\n", form.ID)
}

func seedForm(ctx context.Context, repo forms.Repository) (*forms.Form, error) {
	desc := "Seed form for local development"
	form, err := repo.Create(ctx, &forms.CreateFormRequest{
		Name:        "Example form",
		Description: &desc,
		Status:      forms.StatusDraft,
	})
	if err != nil {
		return nil, err
	}
	for i := range exampleFields {
		req := exampleFields[i]
		if _, err := repo.CreateField(ctx, form.ID, &req); err != nil {
			return nil, fmt.Errorf("field %s: %w", req.Key, err)
		}
	}
	return repo.Get(ctx, form.ID)
}

// seedReferences inserts a demo event and capturing user so leads can be
// submitted with eventId and capturedByUserId.
func seedReferences(ctx context.Context, pool database.PgxPool) (int64, int64, error) {
	var eventID, userID int64
	if err := pool.QueryRow(ctx,
		`INSERT INTO events (name) VALUES ($1) RETURNING id`,
		"Demo trade fair",
	).Scan(&eventID); err != nil {
		return 0, 0, fmt.Errorf("insert event: %w", err)
	}
	if err := pool.QueryRow(ctx,
		`INSERT INTO users (name, email) VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		"Demo User", "demo@leadradar.local",
	).Scan(&userID); err != nil {
		return 0, 0, fmt.Errorf("insert user: %w", err)
	}
	return eventID, userID, nil
}

func resetData(ctx context.Context, pool database.PgxPool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range []string{
		`DELETE FROM lead_values`,
		`DELETE FROM leads`,
		`DELETE FROM form_fields`,
		`DELETE FROM forms`,
		`DELETE FROM events`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return tx.Commit(ctx)
}
