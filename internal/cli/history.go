package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/curlwrap/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect transfers recorded with request --history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded transfers, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print the transfer info of one recorded transfer as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one recorded transfer",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete recorded transfers older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCleanup,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyCleanupCmd)

	historyCmd.PersistentFlags().String("db", "", "History database path (SQLite)")
	_ = historyCmd.MarkPersistentFlagRequired("db")

	historyListCmd.Flags().Int("limit", 20, "Maximum number of records (0 = all)")
	historyCleanupCmd.Flags().Duration("older-than", 30*24*time.Hour, "Age of the records to delete")
}

func openHistory(cmd *cobra.Command) (*history.SQLiteStore, error) {
	path, _ := cmd.Flags().GetString("db")
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history %q: %w", path, err)
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tMETHOD\tSTATUS\tBYTES\tURL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Method, r.StatusCode, r.BodySize, r.URL)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no transfer %q in history", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Delete(cmd.Context(), args[0])
}

func runHistoryCleanup(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.Cleanup(cmd.Context(), olderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d transfer(s)\n", deleted)
	return nil
}
