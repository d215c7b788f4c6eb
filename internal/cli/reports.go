package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/upiguard/upiguard/internal/evidence"
	"github.com/upiguard/upiguard/internal/models"
)

const (
	msgSubmitted  = "Report submitted successfully! Police station contact will be sent within 24 hours if applicable."
	msgDraftSaved = "Report saved as draft successfully!"
	msgMissing    = "Please fill in all required fields"
)

func newReportsCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "File and track fraud reports",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "File a new report (draft unless --submit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := reportInputFromFlags(cmd)
			if err != nil {
				return err
			}
			submit, _ := cmd.Flags().GetBool("submit")
			paths, _ := cmd.Flags().GetStringSlice("evidence")
			out := cmd.OutOrStdout()

			// the form's required fields gate submission, drafts may be partial
			if submit && !hasRequiredFields(in) {
				return errors.New(msgMissing)
			}

			files, err := inspectFiles(paths)
			if err != nil {
				return err
			}
			valid, rejected := partitionFiles(files)
			if len(rejected) > 0 {
				fmt.Fprintln(out, "Warning:", evidence.RejectedWarning)
				for _, f := range rejected {
					fmt.Fprintf(out, "  skipped %s (%s, %d bytes)\n", f.Name, f.ContentType, f.Size)
				}
			}

			in.Status = models.ReportDraft
			if submit {
				in.Status = models.ReportSubmitted
			}

			client := sess.reports()
			report, err := client.Create(cmd.Context(), in)
			if err != nil {
				if submit {
					return fmt.Errorf("failed to submit report: %w", err)
				}
				return fmt.Errorf("failed to save report draft: %w", err)
			}

			for _, f := range valid {
				saved, err := client.Upload(cmd.Context(), report.ID, f)
				if err != nil {
					return fmt.Errorf("report %s saved but uploading %s failed: %w", report.ID, f.Name, err)
				}
				fmt.Fprintf(out, "Uploaded %s (%d bytes)\n", saved.FileName, saved.FileSize)
			}

			if submit {
				fmt.Fprintln(out, msgSubmitted)
			} else {
				fmt.Fprintln(out, msgDraftSaved)
			}
			fmt.Fprintf(out, "Report ID: %s\n", report.ID)
			return nil
		},
	}
	addReportFlags(create)
	create.Flags().Bool("submit", false, "Submit now instead of saving a draft")
	create.Flags().StringSlice("evidence", nil, "Evidence files (PNG, JPG or PDF under 10MB)")

	submit := &cobra.Command{
		Use:   "submit <report-id>",
		Short: "Submit a draft report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReportID(args[0])
			if err != nil {
				return err
			}
			report, err := sess.reports().Submit(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to submit report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msgSubmitted)
			if report.PoliceNotified {
				fmt.Fprintln(cmd.OutOrStdout(), "Police contact notification queued.")
			}
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := sess.reports().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch reports: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, "No reports filed yet.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUPI ID\tCATEGORY\tAMOUNT\tSTATUS\tCREATED")
			for _, r := range reports {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.ReportedUPIID, r.Category, r.AmountInvolved.StringFixed(2), r.Status,
					r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show a report with its evidence and timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReportID(args[0])
			if err != nil {
				return err
			}
			client := sess.reports()
			report, err := client.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to fetch report details: %w", err)
			}
			files, err := client.Evidence(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to fetch evidence: %w", err)
			}
			activity, err := client.Activity(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to fetch activity: %w", err)
			}
			printReport(cmd.OutOrStdout(), report, files, activity)
			return nil
		},
	}

	upload := &cobra.Command{
		Use:   "upload <report-id> <file>...",
		Short: "Attach evidence files to a report",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReportID(args[0])
			if err != nil {
				return err
			}
			files, err := inspectFiles(args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			valid, rejected := partitionFiles(files)
			if len(rejected) > 0 {
				fmt.Fprintln(out, "Warning:", evidence.RejectedWarning)
			}
			client := sess.reports()
			for _, f := range valid {
				saved, err := client.Upload(cmd.Context(), id, f)
				if err != nil {
					return fmt.Errorf("upload %s: %w", f.Name, err)
				}
				fmt.Fprintf(out, "Uploaded %s -> %s\n", saved.FileName, saved.FileURL)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a report and its evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReportID(args[0])
			if err != nil {
				return err
			}
			if err := sess.reports().Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", id)
			return nil
		},
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Count your reports per category and status",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sess.reports().Summary(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch summary: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total reports: %d\n", s.Total)
			for _, c := range s.ByCategory {
				fmt.Fprintf(out, "  %-26s %d\n", c.Category, c.Count)
			}
			for _, st := range s.ByStatus {
				fmt.Fprintf(out, "  %-26s %d\n", st.Status, st.Count)
			}
			return nil
		},
	}

	cmd.AddCommand(create, submit, list, show, upload, del, summary)
	return cmd
}

func addReportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("upi-id", "", "Reported UPI ID")
	f.String("name", "", "Reported full name")
	f.String("phone", "", "Reported phone number")
	f.String("address", "", "Reported address")
	f.String("amount", "", "Amount involved in INR")
	f.String("txn-id", "", "Transaction ID")
	f.String("txn-date", "", "Transaction date (YYYY-MM-DD)")
	f.String("category", "", "fraud, scam, unauthorized_transaction, fake_merchant, identity_theft or other")
	f.String("urgency", string(models.UrgencyMedium), "low, medium, high or critical")
	f.String("description", "", "What happened")
}

func reportInputFromFlags(cmd *cobra.Command) (models.ReportInput, error) {
	f := cmd.Flags()
	get := func(name string) string {
		v, _ := f.GetString(name)
		return strings.TrimSpace(v)
	}

	in := models.ReportInput{
		ReportedUPIID:       get("upi-id"),
		ReportedFullName:    get("name"),
		ReportedPhoneNumber: get("phone"),
		ReportedAddress:     get("address"),
		TransactionID:       get("txn-id"),
		TransactionDate:     get("txn-date"),
		Category:            models.ReportCategory(strings.ToLower(get("category"))),
		Urgency:             models.UrgencyLevel(strings.ToLower(get("urgency"))),
		Description:         get("description"),
	}
	if amount := get("amount"); amount != "" {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return in, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		in.AmountInvolved = d
	}
	if err := validate.Struct(in); err != nil {
		return in, fmt.Errorf("invalid report: %w", err)
	}
	return in, nil
}

func hasRequiredFields(in models.ReportInput) bool {
	return in.ReportedUPIID != "" &&
		in.ReportedFullName != "" &&
		in.AmountInvolved.IsPositive() &&
		in.TransactionDate != "" &&
		in.Category != "" &&
		in.Description != ""
}

func parseReportID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid report id %q", s)
	}
	return id, nil
}

func printReport(w io.Writer, r *models.Report, files []models.EvidenceFile, activity []models.ReportActivity) {
	fmt.Fprintf(w, "Report %s [%s, urgency %s]\n", r.ID, r.Status, r.Urgency)
	fmt.Fprintf(w, "  UPI ID:       %s\n", r.ReportedUPIID)
	fmt.Fprintf(w, "  Name:         %s\n", r.ReportedFullName)
	if r.ReportedPhoneNumber != "" {
		fmt.Fprintf(w, "  Phone:        %s\n", r.ReportedPhoneNumber)
	}
	fmt.Fprintf(w, "  Amount:       %s\n", r.AmountInvolved.StringFixed(2))
	fmt.Fprintf(w, "  Transaction:  %s %s\n", r.TransactionID, r.TransactionDate)
	fmt.Fprintf(w, "  Category:     %s\n", r.Category)
	fmt.Fprintf(w, "  Police:       %v\n", r.PoliceNotified)
	fmt.Fprintf(w, "  Description:  %s\n", r.Description)

	if len(files) > 0 {
		fmt.Fprintln(w, "Evidence:")
		for _, f := range files {
			fmt.Fprintf(w, "  %s  %s  %d bytes  sha256:%s\n", f.FileName, f.FileType, f.FileSize, f.Checksum)
		}
	}
	if len(activity) > 0 {
		fmt.Fprintln(w, "Timeline:")
		for _, a := range activity {
			fmt.Fprintf(w, "  %s  %-18s %s\n", a.CreatedAt.Local().Format("2006-01-02 15:04"), a.Type, a.Description)
		}
	}
}
