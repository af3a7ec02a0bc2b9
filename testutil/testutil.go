// Package testutil holds the fixtures shared by the package tests.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/user"
	"github.com/24vibes/vibes/core/vibe"
	"github.com/24vibes/vibes/storage/database"
)

// NewConfig returns a test configuration. Nothing is read from the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                 "TEST",
		Build:               "test",
		AppName:             "24Vibes",
		TestMode:            true,
		SecretKey:           "test-secret",
		WorkDir:             core.Getwd(),
		FrontendBaseURL:     "https://vibes.test",
		AllowedEmailDomains: []string{"24slides.com"},
		Server: core.ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			GoogleClientID:            "test-client-id",
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Redis: core.RedisConfig{
			LeaderboardTTL: 5 * time.Minute,
			SlackUserTTL:   time.Hour,
		},
		Storage: core.StorageConfig{
			Backend:       "local",
			PublicBaseURL: "http://localhost/media",
			MaxUploadSize: 5 * 1024 * 1024,
		},
	}
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	colleague.InitValidators(validate, translator)
	vibe.InitValidators(validate, translator)
	return validate, translator
}

// OpenDB connects to the test postgres database described by the TEST_DB_* variables,
// migrates it and empties every table. The test is skipped when TEST_DB_HOST is unset.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set: skipping postgres tests")
	}

	conf := NewConfig()
	conf.Database = core.DatabaseConfig{
		Engine:     "postgres",
		Host:       host,
		Port:       core.FirstNonEmpty(os.Getenv("TEST_DB_PORT"), "5432"),
		Name:       core.FirstNonEmpty(os.Getenv("TEST_DB_NAME"), "vibes_test"),
		User:       core.FirstNonEmpty(os.Getenv("TEST_DB_USER"), "vibes"),
		Password:   core.FirstNonEmpty(os.Getenv("TEST_DB_PASSWORD"), "vibes"),
		DisableTLS: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(ctx, db); err != nil {
		t.Fatalf("OpenDB() migrate failed: %v", err)
	}
	tables := []string{"vibe_reactions", "vibes", "users", "colleagues"}
	if _, err = db.ExecContext(ctx, "TRUNCATE "+strings.Join(tables, ", ")); err != nil {
		t.Fatalf("OpenDB() truncate failed: %v", err)
	}
	return db
}

func CreateColleague(t *testing.T, repo colleague.Repository, email, name string, createdAt ...time.Time) colleague.Colleague {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c, err := repo.Create(context.Background(), colleague.Colleague{
		ID:          uuid.New().String(),
		Email:       email,
		Name:        name,
		DisplayName: name,
		Department:  "Design",
		Position:    "Designer",
		Location:    colleague.Malang,
		Joined:      null.TimeFrom(tstamp),
		CreatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateColleague() failed: %v", err)
	}
	return c
}

func CreateUser(t *testing.T, repo user.Repository, id, email, colleagueID string, isAdmin bool, linkedAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(linkedAt) > 0 {
		tstamp = linkedAt[0].UTC()
	}
	usr, err := repo.Create(context.Background(), user.User{
		ID:          id,
		Email:       email,
		ColleagueID: colleagueID,
		IsAdmin:     isAdmin,
		IsActive:    true,
		LinkedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateVibe(t *testing.T, repo vibe.Repository, sender, recipient string, cat vibe.Category, createdAt ...time.Time) vibe.Vibe {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	v, err := repo.Create(context.Background(), vibe.Vibe{
		ID:        uuid.New().String(),
		Message:   "Thanks for the help!",
		Sender:    sender,
		Recipient: recipient,
		Category:  cat,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateVibe() failed: %v", err)
	}
	return v
}
