package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/learnpath/learnpath/db"
	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/adapters"
	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the persisted content catalog",
}

var catalogMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply catalog database migrations",
	RunE:  runCatalogMigrate,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import content nodes and role vectors into the configured backend",
	Long:  "Imports a JSON array of content nodes and/or a JSON object of role vectors into the libsql catalog or the persistent chromem collection.",
	RunE:  runCatalogImport,
}

var (
	importContent string
	importRoles   string
)

func init() {
	catalogImportCmd.Flags().StringVar(&importContent, "content", "", "Path to content nodes JSON")
	catalogImportCmd.Flags().StringVar(&importRoles, "roles", "", "Path to role vectors JSON (libsql backend only)")

	catalogCmd.AddCommand(catalogMigrateCmd, catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogMigrate(cmd *cobra.Command, _ []string) error {
	conn, err := db.ConnectToDB(cfg.Catalog.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(cmd.Context(), conn, logger); err != nil {
		return err
	}
	version, err := db.SchemaVersion(cmd.Context(), conn)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "catalog schema at version %d\n", version)
	return nil
}

func runCatalogImport(cmd *cobra.Command, _ []string) error {
	if importContent == "" && importRoles == "" {
		return fmt.Errorf("nothing to import: pass --content and/or --roles")
	}
	ctx := cmd.Context()
	dim := cfg.Recommend.Dimension

	var nodes []service.ContentNode
	if importContent != "" {
		var err error
		if nodes, err = service.ReadContentFile(importContent); err != nil {
			return err
		}
	}

	switch cfg.Catalog.Backend {
	case "libsql":
		conn, err := openDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		store := adapters.NewCatalogStore(conn, dim, logger)

		if err := store.UpsertNodes(ctx, nodes); err != nil {
			return err
		}
		roleCount := 0
		if importRoles != "" {
			roles, err := service.ReadRoleFile(importRoles)
			if err != nil {
				return err
			}
			if err := store.UpsertRoles(ctx, roles); err != nil {
				return err
			}
			roleCount = len(roles)
		}
		id, err := store.RecordImport(ctx, importContent+" "+importRoles, len(nodes), roleCount)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "import %s: %d nodes, %d roles\n", id, len(nodes), roleCount)

	case "chromem":
		if cfg.Catalog.ChromemDir == "" {
			return fmt.Errorf("catalog.chromem_dir must be set to import into a persistent collection")
		}
		if importRoles != "" {
			return fmt.Errorf("the chromem backend reads roles from catalog.role_vectors_path")
		}
		search, err := adapters.NewChromemSearch(cfg.Catalog.ChromemDir, cfg.Catalog.Collection, dim, logger)
		if err != nil {
			return err
		}
		if err := search.AddNodes(ctx, nodes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d nodes, collection holds %d\n", len(nodes), search.Count())

	default:
		return fmt.Errorf("catalog import needs a persistent backend, got %q", cfg.Catalog.Backend)
	}
	return nil
}
