package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-critical-point/internal/classify"
	"github.com/Veraticus/the-critical-point/internal/cli"
	"github.com/Veraticus/the-critical-point/internal/config"
	"github.com/Veraticus/the-critical-point/internal/deriv"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

func classifyPointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify-point",
		Short: "Classify a single point by its Hessian eigenvalues",
		Long: `Evaluate the Hessian of a registered objective at one coordinate and
report the critical-point type with its numeric-quality diagnostics.
The point is taken as given; no refinement is performed.

Example:
  critpoint classify-point --objective xywell --at 0.7412,-0.7412`,
		RunE: runClassifyPoint,
	}

	cmd.Flags().StringP("objective", "o", "", "registered objective")
	cmd.Flags().String("at", "", "coordinates, comma-separated")
	cmd.Flags().Float64("zero-tol", classify.DefaultZeroTol, "degenerate-eigenvalue threshold")

	_ = viper.BindPFlag("point.objective", cmd.Flags().Lookup("objective"))
	_ = viper.BindPFlag("point.at", cmd.Flags().Lookup("at"))
	_ = viper.BindPFlag("point.zero_tol", cmd.Flags().Lookup("zero-tol"))

	return cmd
}

func runClassifyPoint(_ *cobra.Command, _ []string) error {
	spec, err := objective.Lookup(viper.GetString("point.objective"))
	if err != nil {
		return fmt.Errorf("--objective: %w (known: %s)", err, strings.Join(objective.Names(), ", "))
	}

	x, err := config.ParseVector(viper.GetString("point.at"))
	if err != nil {
		return fmt.Errorf("--at: %w", err)
	}
	if len(x) != spec.Dim {
		return fmt.Errorf("objective %s expects %d dimensions, got %d", spec.Name, spec.Dim, len(x))
	}

	d := deriv.NewFiniteDifference()
	classifier := classify.New(d, viper.GetFloat64("point.zero_tol"))

	point := &model.RefinedPoint{
		X:            x,
		Value:        spec.F(x),
		GradientNorm: deriv.GradientNorm(d, spec.F, x),
	}
	res := classifier.Classify(spec.F, point)

	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("%s at %s", spec.Name, viper.GetString("point.at"))))
	fmt.Printf("  type        %s\n", renderType(res.Type))
	fmt.Printf("  value       %.12g\n", point.Value)
	fmt.Printf("  |gradient|  %.3e\n", point.GradientNorm)
	fmt.Printf("  eigenvalues [%.6g, %.6g]\n", res.EigMin, res.EigMax)
	fmt.Printf("  condition   %.3e\n", res.ConditionNumber)
	fmt.Printf("  det / trace %.6g / %.6g\n", res.Determinant, res.Trace)
	return nil
}

func renderType(t model.CriticalPointType) string {
	switch t {
	case model.TypeMinimum:
		return cli.SuccessStyle.Render(t.String())
	case model.TypeError:
		return cli.ErrorStyle.Render(t.String())
	case model.TypeDegenerate:
		return cli.WarningStyle.Render(t.String())
	case model.TypeMaximum, model.TypeSaddle:
		return cli.InfoStyle.Render(t.String())
	default:
		return t.String()
	}
}
