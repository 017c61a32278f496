package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-critical-point/internal/cli"
	"github.com/Veraticus/the-critical-point/internal/config"
	"github.com/Veraticus/the-critical-point/internal/deriv"
	"github.com/Veraticus/the-critical-point/internal/engine"
	"github.com/Veraticus/the-critical-point/internal/extract"
	"github.com/Veraticus/the-critical-point/internal/objective"
	"github.com/Veraticus/the-critical-point/internal/storage"
)

func huntCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hunt",
		Short: "Run the full critical-point pipeline over a domain",
		Long: `Run the full pipeline: approximate the objective by an orthogonal
polynomial, solve the stationarity system for candidates, deduplicate,
refine with multi-stage gradient descent, classify by Hessian
eigenvalues, and report grouped minimizers.

Examples:
  critpoint hunt --objective xywell
  critpoint hunt --objective paired-wells --orthants --ultra
  critpoint hunt --objective himmelblau --center 0,0 --halfwidth 5 --store`,
		RunE: runHunt,
	}

	cmd.Flags().StringP("objective", "o", "", "registered objective to hunt (see long help)")
	cmd.Flags().String("center", "", "domain center, comma-separated (default: objective's own)")
	cmd.Flags().String("halfwidth", "", "per-axis half-widths, or one value broadcast to all axes")
	cmd.Flags().String("basis", "", "approximation basis (chebyshev, legendre)")
	cmd.Flags().String("precision", "", "coefficient strategy (fast, hybrid, extended, exact-rational)")
	cmd.Flags().Int("degree", 0, "initial approximation degree")
	cmd.Flags().IntP("top-k", "k", 0, "refine only the K best-valued candidates (0 = all)")
	cmd.Flags().Bool("ultra", false, "enable staged ultra-precision refinement")
	cmd.Flags().Bool("polish", false, "enable derivative-free polish after refinement")
	cmd.Flags().Bool("orthants", false, "decompose the domain into orthants")
	cmd.Flags().IntP("workers", "w", 0, "max concurrent workers (0 = GOMAXPROCS)")
	cmd.Flags().Bool("store", false, "persist the run to the history database")

	_ = viper.BindPFlag("hunt.objective", cmd.Flags().Lookup("objective"))
	_ = viper.BindPFlag("hunt.center", cmd.Flags().Lookup("center"))
	_ = viper.BindPFlag("hunt.halfwidth", cmd.Flags().Lookup("halfwidth"))
	_ = viper.BindPFlag("pipeline.basis", cmd.Flags().Lookup("basis"))
	_ = viper.BindPFlag("pipeline.precision", cmd.Flags().Lookup("precision"))
	_ = viper.BindPFlag("pipeline.initial_degree", cmd.Flags().Lookup("degree"))
	_ = viper.BindPFlag("pipeline.top_k", cmd.Flags().Lookup("top-k"))
	_ = viper.BindPFlag("pipeline.ultra_precision", cmd.Flags().Lookup("ultra"))
	_ = viper.BindPFlag("pipeline.polish", cmd.Flags().Lookup("polish"))
	_ = viper.BindPFlag("pipeline.orthants", cmd.Flags().Lookup("orthants"))
	_ = viper.BindPFlag("pipeline.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("hunt.store", cmd.Flags().Lookup("store"))

	return cmd
}

func runHunt(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	spec, err := objective.Lookup(viper.GetString("hunt.objective"))
	if err != nil {
		return fmt.Errorf("--objective: %w (known: %s)", err, strings.Join(objective.Names(), ", "))
	}

	// Flags override the objective's default search region.
	if viper.GetString("hunt.center") == "" {
		viper.Set("hunt.center", config.FormatVector(spec.Center))
	}
	if viper.GetString("hunt.halfwidth") == "" {
		viper.Set("hunt.halfwidth", fmt.Sprintf("%g", spec.HalfWidth))
	}
	if viper.GetString("hunt.label") == "" {
		viper.Set("hunt.label", spec.Name)
	}

	domain, err := config.ResolveDomain()
	if err != nil {
		return err
	}
	if domain.Dim() != spec.Dim {
		return fmt.Errorf("objective %s expects %d dimensions, domain has %d",
			spec.Name, spec.Dim, domain.Dim())
	}

	cfg, err := config.ResolveEngine()
	if err != nil {
		return err
	}

	slog.Info("Hunting critical points",
		"objective", spec.Name,
		"dim", domain.Dim(),
		"orthants", cfg.Orthants)

	f, bar := withProgress(spec.F)
	eng := engine.New(f, deriv.NewFiniteDifference(), extract.NewNewtonSolver(), cfg)

	result, err := eng.Run(ctx, domain)
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	fmt.Print(cli.RenderResult(result))

	if viper.GetBool("hunt.store") {
		id, storeErr := persistRun(ctx, spec.Name, result)
		if storeErr != nil {
			return fmt.Errorf("failed to store run: %w", storeErr)
		}
		fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Run stored with id %d", id)))
	}
	return nil
}

// withProgress wraps the objective so the spinner advances once per batch of
// evaluations. Safe under the engine's concurrent workers.
func withProgress(f objective.Func) (objective.Func, *progressbar.ProgressBar) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("evaluating objective"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetItsString("evals"),
		progressbar.OptionShowIts(),
	)
	var evals atomic.Int64
	wrapped := func(x []float64) float64 {
		if evals.Add(1)%64 == 0 {
			_ = bar.Add(64)
		}
		return f(x)
	}
	return wrapped, bar
}

func persistRun(ctx context.Context, name string, result *engine.Result) (int64, error) {
	db, err := openStore()
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	run := &storage.Run{
		Objective:  name,
		Dim:        result.Domain.Dim(),
		Subdomains: result.Subdomains,
		Candidates: result.Candidates,
		ElapsedMS:  result.Elapsed.Milliseconds(),
	}
	for i := range result.Classified {
		res := &result.Classified[i]
		p := storage.Point{
			Type:            res.Type,
			EigMin:          res.EigMin,
			EigMax:          res.EigMax,
			ConditionNumber: res.ConditionNumber,
			Value:           math.NaN(),
			GradientNorm:    math.NaN(),
		}
		if res.Point != nil {
			p.Subdomain = res.Point.Subdomain
			p.X = res.Point.X
			p.Value = res.Point.Value
			p.Converged = res.Point.Converged
			p.Iterations = res.Point.Iterations
			p.GradientNorm = res.Point.GradientNorm
		}
		run.Points = append(run.Points, p)
	}

	return db.SaveRun(ctx, run)
}

func openStore() (storage.Store, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/critpoint/critpoint.db"
	}
	dbPath = config.ExpandPath(dbPath)

	db, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
