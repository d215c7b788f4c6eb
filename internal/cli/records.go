package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/records"
)

var validate = validator.New()

func newRecordsCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"rec"},
		Short:   "List and edit UPI risk records",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List records, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			statusFlag, _ := cmd.Flags().GetString("status")
			asJSON, _ := cmd.Flags().GetBool("json")

			status, err := records.ParseStatusFilter(statusFlag)
			if err != nil {
				return err
			}

			snap := sess.records(cmd.Context()).Snapshot()
			shown := filterEntries(snap.Records, search, status)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(shown)
			}
			printBanner(cmd.OutOrStdout(), snap)
			printEntries(cmd.OutOrStdout(), shown)
			return nil
		},
	}
	list.Flags().String("search", "", "Match name or UPI ID (case-insensitive)")
	list.Flags().String("status", "All", "All, Safe or Risk")
	list.Flags().Bool("json", false, "Print JSON")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show totals and the average score",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := sess.records(cmd.Context())
			s := records.ComputeStats(store.Records())
			out := cmd.OutOrStdout()
			printBanner(out, store.Snapshot())
			fmt.Fprintf(out, "Total:         %d\n", s.Total)
			fmt.Fprintf(out, "Safe:          %d\n", s.Safe)
			fmt.Fprintf(out, "Risk:          %d\n", s.Risk)
			fmt.Fprintf(out, "Average score: %d\n", s.AverageScore)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			upiID, _ := cmd.Flags().GetString("upi-id")
			score, _ := cmd.Flags().GetInt("score")
			status, _ := cmd.Flags().GetString("status")

			rec := models.UPIRecord{
				Name:   strings.TrimSpace(name),
				UPIID:  strings.TrimSpace(upiID),
				Score:  score,
				Status: normalizeStatus(status),
			}
			if err := validate.Struct(rec); err != nil {
				return fmt.Errorf("invalid record: %w", err)
			}

			entry := sess.records(cmd.Context()).Add(cmd.Context(), rec)
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) %s\n", entry.Name, entry.ID, syncNote(entry.Sync))
			return nil
		},
	}
	add.Flags().String("name", "", "Holder name")
	add.Flags().String("upi-id", "", "UPI ID, e.g. name@bank")
	add.Flags().Int("score", 0, "Risk score 0-100")
	add.Flags().String("status", string(models.StatusSafe), "Safe or Risk")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("upi-id")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.UPIRecordPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				v, _ := flags.GetString("name")
				patch.Name = &v
			}
			if flags.Changed("upi-id") {
				v, _ := flags.GetString("upi-id")
				patch.UPIID = &v
			}
			if flags.Changed("score") {
				v, _ := flags.GetInt("score")
				patch.Score = &v
			}
			if flags.Changed("status") {
				v, _ := flags.GetString("status")
				st := normalizeStatus(v)
				patch.Status = &st
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update: pass --name, --upi-id, --score or --status")
			}
			if err := validate.Struct(patch); err != nil {
				return fmt.Errorf("invalid update: %w", err)
			}

			store := sess.records(cmd.Context())
			if !store.Update(cmd.Context(), args[0], patch) {
				return fmt.Errorf("no record with id %s", args[0])
			}
			for _, e := range store.Snapshot().Records {
				if e.ID == args[0] {
					fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", e.Name, syncNote(e.Sync))
				}
			}
			return nil
		},
	}
	update.Flags().String("name", "", "Holder name")
	update.Flags().String("upi-id", "", "UPI ID")
	update.Flags().Int("score", 0, "Risk score 0-100")
	update.Flags().String("status", "", "Safe or Risk")

	del := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := sess.records(cmd.Context()).Delete(cmd.Context(), args[0])
			switch op.State {
			case records.OpFailedLocalOnly:
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s locally; the server did not confirm (%s)\n", args[0], op.Error)
			case records.OpFailed:
				return fmt.Errorf("no record with id %s (server: %s)", args[0], op.Error)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			}
			return nil
		},
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Reload records from the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			// the first use already loads
			wasLoaded := sess.loaded
			store := sess.records(cmd.Context())
			if wasLoaded {
				store.Refresh(cmd.Context())
			}
			printBanner(cmd.OutOrStdout(), store.Snapshot())
			return nil
		},
	}

	ops := &cobra.Command{
		Use:   "ops",
		Short: "Show in-flight and local-only operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := sess.records(cmd.Context()).Snapshot()
			out := cmd.OutOrStdout()
			if len(snap.Pending) == 0 && len(snap.Unconfirmed) == 0 {
				fmt.Fprintln(out, "All changes are confirmed by the server.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OP\tKIND\tRECORD\tSTATE\tERROR")
			for _, group := range [][]records.Operation{snap.Pending, snap.Unconfirmed} {
				for _, op := range group {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", op.ID, op.Kind, op.RecordID, op.State, op.Error)
				}
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(list, stats, add, update, del, refresh, ops)
	return cmd
}

// normalizeStatus accepts safe/risk in any case
func normalizeStatus(s string) models.RecordStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return models.StatusSafe
	case "risk":
		return models.StatusRisk
	}
	return models.RecordStatus(s)
}

func filterEntries(entries []records.Entry, term string, status records.StatusFilter) []records.Entry {
	out := make([]records.Entry, 0, len(entries))
	for _, e := range entries {
		if records.Matches(e.UPIRecord, term, status) {
			out = append(out, e)
		}
	}
	return out
}

func printBanner(w io.Writer, snap records.Snapshot) {
	fmt.Fprintf(w, "Source: %s, %d records", snap.Source, len(snap.Records))
	if n := len(snap.Unconfirmed); n > 0 {
		fmt.Fprintf(w, ", %d unconfirmed change(s)", n)
	}
	fmt.Fprintln(w)
	if snap.Error != "" {
		fmt.Fprintf(w, "Warning: %s\n", snap.Error)
	}
}

func printEntries(w io.Writer, entries []records.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No records match.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUPI ID\tSCORE\tSTATUS\tSYNC")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", e.ID, e.Name, e.UPIID, e.Score, e.Status, e.Sync)
	}
	tw.Flush()
}

func syncNote(s records.SyncState) string {
	if s == records.SyncLocalOnly {
		return "(local only, server unavailable)"
	}
	return "(saved)"
}
