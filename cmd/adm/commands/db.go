package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"adaptivequiz/internal/database"
	"adaptivequiz/internal/observability"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(dbManager *database.Manager, logger *observability.Logger, databaseURL string) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  migrate - Run pending schema migrations
  info    - Show the configured database target`,
	}

	dbCmd.AddCommand(migrateCmd(dbManager, logger, databaseURL))
	dbCmd.AddCommand(infoCmd(databaseURL))

	return dbCmd
}

func migrateCmd(dbManager *database.Manager, logger *observability.Logger, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run pending schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			logger.Info(ctx, "Running migrations", map[string]interface{}{"db_url": maskDatabaseURL(databaseURL)})
			if err := dbManager.RunMigrations(databaseURL); err != nil {
				return err
			}
			fmt.Println("Migrations applied")
			return nil
		},
	}
}

func infoCmd(databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the configured database target",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Printf("Database: %s\n", maskDatabaseURL(databaseURL))
			return nil
		},
	}
}

// maskDatabaseURL hides credentials in a database URL for log output
func maskDatabaseURL(databaseURL string) string {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		// Fall back to hiding everything before the host
		if idx := strings.LastIndex(databaseURL, "@"); idx != -1 {
			return "***" + databaseURL[idx:]
		}
		return databaseURL
	}
	if parsed.User != nil {
		parsed.User = url.User(parsed.User.Username())
	}
	return parsed.Redacted()
}
