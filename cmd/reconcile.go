package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"jsoncache/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reconcileEntity  string
	reconcileObject  string
	reconcileRestore bool
	reconcileYes     bool
)

// reconcileCmd compares the store with an exported snapshot.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare stored objects with an exported snapshot",
	Long: `Compare every stored object of an entity with a snapshot in the bucket.

Reports identifiers missing on either side and fields whose values differ.
With --restore, the snapshot version of every drifted object is merged back.

Examples:
  # Report only
  reconcile --entity Band

  # Merge snapshot values back, without prompting
  reconcile --entity Band --restore --yes`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileEntity, "entity", "", "Entity to reconcile")
	reconcileCmd.Flags().StringVar(&reconcileObject, "object", "", "Snapshot object name (default snapshots/<entity>.json)")
	reconcileCmd.Flags().BoolVar(&reconcileRestore, "restore", false, "Merge drifted snapshot objects back into the store")
	reconcileCmd.Flags().BoolVar(&reconcileYes, "yes", false, "Skip the confirmation prompt")
	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if reconcileEntity == "" {
		return fmt.Errorf("--entity is required")
	}

	ctx := context.Background()
	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.service.Drift(ctx, reconcileEntity, reconcileObject)
	if err != nil {
		return fmt.Errorf("failed to reconcile: %w", err)
	}
	printReconcileReport(a.logger, report)

	if !reconcileRestore {
		return nil
	}
	if len(report.Drifted()) == 0 {
		a.logger.Info("Nothing to restore")
		return nil
	}
	if !confirmRestore(cmd) {
		a.logger.Warn("Restore cancelled. No changes were made.")
		return nil
	}

	res, err := a.service.Restore(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to restore: %w", err)
	}
	a.logger.Info("Restore complete",
		zap.Int("objects", res.Objects),
		zap.Int("relationships", res.Relationships),
	)
	return nil
}

func printReconcileReport(l *zap.Logger, report *reconcile.Report) {
	s := report.Summary
	l.Info("Reconciliation report",
		zap.String("entity", report.Entity),
		zap.String("snapshot", report.Snapshot),
		zap.Int("total", s.Total),
		zap.Int("in_sync", s.InSync),
		zap.Int("missing_store", s.MissingStore),
		zap.Int("missing_snapshot", s.MissingSnapshot),
		zap.Int("mismatched", s.Mismatched),
	)

	drifted := report.Drifted()
	maxShow := 5
	if len(drifted) < maxShow {
		maxShow = len(drifted)
	}
	for _, r := range drifted[:maxShow] {
		l.Info("Drifted object",
			zap.String("id", r.ID),
			zap.Bool("store", r.StorePresent),
			zap.Bool("snapshot", r.SnapshotPresent),
			zap.Strings("mismatch", r.Mismatch),
		)
	}
	if len(drifted) > maxShow {
		l.Info("Additional drifted objects not shown", zap.Int("count", len(drifted)-maxShow))
	}
}

func confirmRestore(cmd *cobra.Command) bool {
	if reconcileYes {
		return true
	}
	fmt.Fprint(cmd.OutOrStdout(), "Type 'yes' to merge snapshot values into the store: ")
	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
