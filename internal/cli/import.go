package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/importer"
)

// NewImportCmd loads YAML quiz files into the catalog.
func NewImportCmd(configPath *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import quizzes from YAML files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" && len(args) == 0 {
				return fmt.Errorf("pass quiz files or --dir")
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("import requires postgres to be configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.close()

			imp := importer.New(svc.writer, svc.log)
			for _, path := range args {
				if _, err := imp.ImportFile(cmd.Context(), path); err != nil {
					return err
				}
			}
			if dir != "" {
				quizzes, err := imp.ImportDirectory(cmd.Context(), dir)
				if err != nil {
					return err
				}
				svc.log.Info("directory import finished", "dir", dir, "imported", len(quizzes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of YAML quiz files to import")
	return cmd
}
