// seed-narratives imports narrative templates from a YAML file into one tenant.
//
// Usage: go run ./scripts/seed-narratives [-dry-run] <tenant-id> <file.yaml>
//
// Database connection: Uses standard PG* environment variables
//
// The import is all-or-nothing: one invalid template rejects the whole file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/inspection-engine/pkg/cache"
	"github.com/ekaya-inc/inspection-engine/pkg/database"
	"github.com/ekaya-inc/inspection-engine/pkg/logging"
	"github.com/ekaya-inc/inspection-engine/pkg/models"
	"github.com/ekaya-inc/inspection-engine/pkg/repositories"
	"github.com/ekaya-inc/inspection-engine/pkg/retry"
	"github.com/ekaya-inc/inspection-engine/pkg/services"
)

// seedFile is the on-disk format.
type seedFile struct {
	Templates []models.NarrativeTemplateDefinition `yaml:"templates"`
}

func main() {
	dryRun := flag.Bool("dry-run", false, "Validate the file without writing to the database")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-dry-run] <tenant-id> <file.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	tenantID, err := uuid.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid tenant ID: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Open(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open seed file: %v\n", err)
		os.Exit(1)
	}
	defs, err := parseSeed(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse seed file: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		if err := validateSeed(defs); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d templates valid (dry run, nothing written)\n", len(defs))
		return
	}

	ctx := context.Background()
	logger := zap.NewNop()

	db, err := retry.DoIfRetryableWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{URL: buildConnString(), MaxConnections: 2})
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %s\n", logging.SanitizeError(err))
		os.Exit(1)
	}
	defer db.Close()

	settingsService := services.NewNarrativeSettingsService(
		repositories.NewNarrativeSettingRepository(), cache.NewSettingsCache(nil, 0, logger), logger)
	narrativeService := services.NewNarrativeService(
		repositories.NewNarrativeTemplateRepository(),
		repositories.NewFindingRepository(),
		repositories.NewNarrativeChoiceRepository(),
		settingsService, 50, logger)

	n, err := services.ImportTemplates(ctx, services.NewTenantContextFunc(db), narrativeService, tenantID, defs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %s\n", logging.SanitizeError(err))
		os.Exit(1)
	}
	fmt.Printf("Imported %d narrative templates into tenant %s\n", n, tenantID)
}

func parseSeed(r io.Reader) ([]models.NarrativeTemplateDefinition, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, err
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("no templates in file")
	}
	return file.Templates, nil
}

// validateSeed runs the same per-template validation BulkImport applies.
func validateSeed(defs []models.NarrativeTemplateDefinition) error {
	for i, def := range defs {
		if err := models.Validate(def); err != nil {
			return fmt.Errorf("templates[%d] (%q): %w", i, def.Title, err)
		}
	}
	return nil
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "inspection")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "inspection_engine")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
