package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"admissions-crm/config"
	"admissions-crm/db"
	"admissions-crm/http/handlers"
	"admissions-crm/models"
	"admissions-crm/services"
	"admissions-crm/utils"

	"github.com/spf13/cobra"
)

var (
	reportDate   string
	reportFormat string
	reportOut    string
	reassignMax  int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark idle counselors away or offline",
	Long:  `Runs the inactivity check over every ACTIVE and AWAY counselor. Counselors going offline release their upcoming sessions. Intended to be run every minute from cron.`,
	RunE:  runSweep,
}

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Export the daily attendance report",
	RunE:  runAttendance,
}

var absentCmd = &cobra.Command{
	Use:   "absent",
	Short: "List counselors with no attendance for a day",
	RunE:  runAbsent,
}

var importLeadsCmd = &cobra.Command{
	Use:   "import-leads <file.xlsx>",
	Short: "Import and auto-assign leads from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportLeads,
}

var reassignCmd = &cobra.Command{
	Use:   "reassign-unassigned",
	Short: "Retry auto-assignment for NEW leads without a counselor",
	RunE:  runReassign,
}

func init() {
	rootCmd.AddCommand(migrateCmd, sweepCmd, attendanceCmd, absentCmd, importLeadsCmd, reassignCmd)

	attendanceCmd.Flags().StringVar(&reportDate, "date", "", "Day to report (YYYY-MM-DD, default today)")
	attendanceCmd.Flags().StringVar(&reportFormat, "format", "xlsx", "Output format: xlsx or pdf")
	attendanceCmd.Flags().StringVar(&reportOut, "out", "", "Output file (default attendance-<date>.<format>)")
	absentCmd.Flags().StringVar(&reportDate, "date", "", "Day to check (YYYY-MM-DD, default today)")
	reassignCmd.Flags().IntVar(&reassignMax, "limit", utils.DefaultLimit, "Maximum leads to retry")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	database, err := db.Open(cfg.DBDriver, config.GetDSN())
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", database.Dialect())
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Tracker.SweepInactive(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runAttendance(cmd *cobra.Command, _ []string) error {
	if reportFormat != "xlsx" && reportFormat != "pdf" {
		return fmt.Errorf("unsupported format %q (use xlsx or pdf)", reportFormat)
	}
	date, err := parseDate(reportDate)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if date == "" {
		date = a.Tracker.Today()
	}
	var buf bytes.Buffer
	if _, err := services.ExportAttendance(cmd.Context(), a.Tracker, &buf, date, reportFormat); err != nil {
		return err
	}

	out := reportOut
	if out == "" {
		out = fmt.Sprintf("attendance-%s.%s", date, reportFormat)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return nil
}

func runAbsent(cmd *cobra.Command, _ []string) error {
	date, err := parseDate(reportDate)
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	absent, err := a.Tracker.GetAbsentCounselors(cmd.Context(), date)
	if err != nil {
		return err
	}
	for _, c := range absent {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", c.ID, c.Name, c.Email)
	}
	return nil
}

func runImportLeads(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	leads, skipped, err := services.ParseLeadsExcel(f)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result := handlers.NewLeadHandler(a.Repos, a.Engine).ImportLeads(cmd.Context(), leads)
	result.Skipped = append(skipped, result.Skipped...)
	return printJSON(cmd.OutOrStdout(), result)
}

func runReassign(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Coordinator.AutoReassignUnassigned(cmd.Context(), reassignMax)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func parseDate(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if _, err := time.Parse(models.DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid --date %q, use YYYY-MM-DD", s)
	}
	return s, nil
}
