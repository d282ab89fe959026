package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes the dataset file.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the dataset",
	Long:  "Permanently delete the dataset file. All collected rows will be lost; the next 'collect' starts from scratch and only sees matches still in the recent history.",
	Args:  cobra.NoArgs,
	RunE:  runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	path := cfg.Dataset.Path
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", path)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Dataset does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove dataset: %w", err)
	}
	if cfg.Dataset.Format == "sqlite" {
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", path)
	return nil
}
