package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/export"
)

var exportOut string

// exportCmd writes a catalog's Shopify CSV to disk.
var exportCmd = &cobra.Command{
	Use:   "export-csv [catalog-key]",
	Short: "Export a catalog as a Shopify product CSV",
	Long: `Builds the Shopify product import CSV for one catalog and writes it to a file.

Example:
  catalogctl export-csv cat_5f2a... --user alice -o northwind.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, res, err := exportCSV(cmd.Context(), deps.exporter, currentUser(), args[0], exportOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", res.Rows, path)
		return nil
	},
}

func exportCSV(ctx context.Context, exporter *export.Exporter, user auth.User, key, out string) (string, *export.Result, error) {
	res, err := exporter.ExportCatalog(ctx, user, key)
	if err != nil {
		return "", nil, fmt.Errorf("export %s: %w", key, err)
	}
	if out == "" {
		out = res.Filename
	}
	if err := os.WriteFile(out, res.Body, 0o644); err != nil {
		return "", nil, fmt.Errorf("write %s: %w", out, err)
	}
	return out, res, nil
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage catalog image prompt groups",
}

// promptsImportCmd replaces a catalog's image prompt groups from a YAML file.
var promptsImportCmd = &cobra.Command{
	Use:   "import [catalog-id] [file.yaml]",
	Short: "Replace a catalog's image prompt groups from YAML",
	Long: `Reads a YAML list of prompt groups and stores it on the catalog.

File format:
  - groupName: Lifestyle
    prompts:
      - model wearing the jacket outdoors
  - groupName: Packshot
    prompts:
      - front view on white`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid catalog id %q", args[0])
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		c, err := importPrompts(cmd.Context(), deps.catalog, currentUser(), catalogID, f)
		if err != nil {
			return err
		}
		logger.Info("image prompts imported", zap.Int64("catalog_id", c.ID), zap.Int("groups", len(c.Settings.ImageGroupPrompts)))
		fmt.Fprintf(cmd.OutOrStdout(), "catalog %s now has %d prompt groups\n", c.CatalogKey, len(c.Settings.ImageGroupPrompts))
		return nil
	},
}

func loadPrompts(r io.Reader) ([]domain.ImageGroupPrompt, error) {
	var groups []domain.ImageGroupPrompt
	if err := yaml.NewDecoder(r).Decode(&groups); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	return groups, nil
}

func importPrompts(ctx context.Context, svc *catalog.Service, user auth.User, catalogID int64, r io.Reader) (*domain.Catalog, error) {
	groups, err := loadPrompts(r)
	if err != nil {
		return nil, err
	}
	return svc.SetImagePrompts(ctx, user, catalogID, groups)
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and maintain background jobs",
}

var jobsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete the user's completed jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := deps.jobs.DeleteCompleted(cmd.Context(), currentUser())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d completed jobs\n", n)
		return nil
	},
}
