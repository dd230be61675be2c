package cli

import (
	"fmt"

	"StatusServer/config"
	"StatusServer/model"
	"StatusServer/pkg/database"

	"github.com/spf13/cobra"
)

// NewMigrateCommand 建表后退出
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := database.Build(cfg.Database)
			if err != nil {
				return fmt.Errorf("build database: %w", err)
			}
			defer func() {
				_ = database.Close(db)
			}()

			if err := model.AutoMigrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", cfg.Database.Driver)
			return err
		},
	}
}
