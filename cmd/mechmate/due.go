package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

func newDueCmd() *cobra.Command {
	var (
		days   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Print overdue and upcoming maintenance from the local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openEnv()
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.svc.tasks.DueReport(cmd.Context(), days)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printReport(out, report)
		},
	}
	cmd.Flags().IntVar(&days, "days", -1, "look-ahead window in days (default: configured window)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(out io.Writer, report service.DueReport) error {
	fmt.Fprintf(out, "Maintenance report for %s\n", report.Today)
	sections := []struct {
		title string
		tasks []service.TaskView
	}{
		{"Overdue", report.Overdue},
		{fmt.Sprintf("Due in the next %d days", report.WindowDays), report.Upcoming},
	}
	for _, s := range sections {
		fmt.Fprintf(out, "\n%s\n", s.title)
		if len(s.tasks) == 0 {
			fmt.Fprintln(out, "  (none)")
			continue
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, v := range s.tasks {
			due := "-"
			if v.NextDueDate != nil {
				due = v.NextDueDate.UTC().Format("2006-01-02")
			}
			at := "-"
			if v.NextDueUsageValue != nil {
				at = service.FormatNumber(*v.NextDueUsageValue) + " " + v.UsageUnit
			}
			fmt.Fprintf(w, "  #%d\t%s\t%s\t%s\t%s\n", v.ID, v.Title, v.EquipmentName, due, at)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
