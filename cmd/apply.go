package cmd

import (
	"context"
	"fmt"
	"os"

	cachesync "jsoncache/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	applyFile    string
	applyObject  string
	applyMapping []string
)

// applyCmd merges a bundle document into the store.
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Stage and merge a JSON bundle",
	Long: `Stages the arrays of a JSON bundle and merges them in one cycle.

Examples:
  # Local file, entity arrays under data.*
  apply --file music.json --map Band=data.bands --map Album=data.albums

  # Bundle stored in the bucket
  apply --object bundles/music.json --map Band=bands`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (applyFile == "") == (applyObject == "") {
			return fmt.Errorf("exactly one of --file or --object is required")
		}
		mapping, err := cachesync.ParseMapping(applyMapping)
		if err != nil {
			return err
		}
		if len(mapping) == 0 {
			return fmt.Errorf("at least one --map Entity=path is required")
		}

		ctx := context.Background()
		a, err := bootstrap(ctx, applyObject != "")
		if err != nil {
			return err
		}
		defer a.close()

		if applyFile != "" {
			data, err := os.ReadFile(applyFile)
			if err != nil {
				return fmt.Errorf("failed to read bundle: %w", err)
			}
			res, err := a.service.ImportData(ctx, data, mapping)
			if err != nil {
				return err
			}
			a.logger.Info("Bundle applied", zap.String("file", applyFile), zap.Int("objects", res.Objects), zap.Int("relationships", res.Relationships))
			return nil
		}

		res, err := a.service.ImportBundle(ctx, applyObject, mapping)
		if err != nil {
			return err
		}
		a.logger.Info("Bundle applied", zap.String("object", applyObject), zap.Int("objects", res.Objects), zap.Int("relationships", res.Relationships))
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVar(&applyFile, "file", "", "Bundle file on disk")
	applyCmd.Flags().StringVar(&applyObject, "object", "", "Bundle object in the storage bucket")
	applyCmd.Flags().StringArrayVar(&applyMapping, "map", nil, "Entity=path pairs (gjson syntax)")
	RootCmd.AddCommand(applyCmd)
}
