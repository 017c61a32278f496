package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-critical-point/internal/cli"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/storage"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored pipeline runs",
		RunE:  runRuns,
	}
	cmd.Flags().IntP("limit", "n", 20, "maximum runs to list")
	cmd.Flags().Int64("show", 0, "show the classified points of one run by id")
	_ = viper.BindPFlag("runs.limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("runs.show", cmd.Flags().Lookup("show"))
	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if id := viper.GetInt64("runs.show"); id > 0 {
		return showRun(cmd, db, id)
	}

	summaries, err := db.ListRuns(ctx, viper.GetInt("runs.limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No stored runs."))
		return nil
	}

	fmt.Println(cli.TitleStyle.Render("Stored runs"))
	fmt.Println(cli.BoldStyle.Render(fmt.Sprintf("  %-5s %-20s %-14s %4s %7s %7s %9s",
		"id", "created", "objective", "dim", "points", "minima", "elapsed")))
	for _, s := range summaries {
		fmt.Printf("  %-5d %-20s %-14s %4d %7d %7d %7dms\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"),
			s.Objective, s.Dim, s.Points, s.Minima, s.ElapsedMS)
	}
	return nil
}

func showRun(cmd *cobra.Command, db storage.Store, id int64) error {
	run, err := db.GetRun(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", id, err)
	}

	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Run %d: %s", run.ID, run.Objective)))
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  %s  dim=%d  subdomains=%d  candidates=%d  %dms",
		run.CreatedAt.Format("2006-01-02 15:04:05"), run.Dim, run.Subdomains, run.Candidates, run.ElapsedMS)))
	for _, p := range run.Points {
		marker := "  "
		if p.Type == model.TypeMinimum {
			marker = cli.SuccessStyle.Render("* ")
		}
		fmt.Printf("%s%-10s f=%.10g  x=%v  |grad|=%.2e  cond=%.2e\n",
			marker, p.Type, p.Value, p.X, p.GradientNorm, p.ConditionNumber)
	}
	return nil
}
