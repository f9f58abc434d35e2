package cmd

import (
	"context"

	"jsoncache/core/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates the tables of the model and reports their columns.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and columns for the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(context.Background(), false)
		if err != nil {
			return err
		}
		defer a.close()

		db := a.store.DB()
		for _, e := range a.store.Model().Entities {
			columns, err := database.GetTableColumns(db, e.Table)
			if err != nil {
				return err
			}
			fields := make([]string, 0, len(columns))
			for _, c := range columns {
				fields = append(fields, c.Field+" "+c.Type)
			}
			a.logger.Info("Table", zap.String("entity", e.Name), zap.String("table", e.Table), zap.Strings("columns", fields))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
