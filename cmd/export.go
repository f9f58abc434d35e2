package cmd

import (
	"context"
	"fmt"

	"jsoncache/core/serializer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportEntity string
	exportObject string
	exportStdout bool
)

// exportCmd writes every object of an entity as serialized JSON.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an entity as JSON to the bucket or stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportEntity == "" {
			return fmt.Errorf("--entity is required")
		}

		ctx := context.Background()
		a, err := bootstrap(ctx, !exportStdout)
		if err != nil {
			return err
		}
		defer a.close()

		if exportStdout {
			list, err := a.service.Dump(ctx, exportEntity)
			if err != nil {
				return err
			}
			for _, dict := range list {
				out, err := serializer.ToJSONString(dict)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		}

		name, count, err := a.service.Export(ctx, exportEntity, exportObject)
		if err != nil {
			return err
		}
		a.logger.Info("Export complete", zap.String("object", name), zap.Int("objects", count))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportEntity, "entity", "", "Entity to export")
	exportCmd.Flags().StringVar(&exportObject, "object", "", "Object name (default snapshots/<entity>.json)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Print pretty JSON instead of uploading")
	RootCmd.AddCommand(exportCmd)
}
