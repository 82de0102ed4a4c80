package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/indoor-mall-nav/navign-sub000/internal/httpclient"
)

// routeCmd queries the inter-area router (C9).
func routeCmd() *cobra.Command {
	var (
		entity      string
		start, end  string
		noElevator  bool
		noStairs    bool
		noEscalator bool
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Query the inter-area router for a path between two areas",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			limits := httpclient.RouteLimits{
				AllowElevator:  !noElevator,
				AllowStairs:    !noStairs,
				AllowEscalator: !noEscalator,
			}

			res, err := client.entityScoped(entity).Route(context.Background(), entity, start, end, limits)
			if err != nil {
				return fmt.Errorf("route: %w", err)
			}

			out, err := formatRouteResult(res, outputFormat)
			if err != nil {
				return fmt.Errorf("format result: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity (mall) ID")
	cmd.Flags().StringVar(&start, "start", "", "departure area ID")
	cmd.Flags().StringVar(&end, "end", "", "arrival area ID")
	cmd.Flags().BoolVar(&noElevator, "no-elevator", false, "disallow elevator connections")
	cmd.Flags().BoolVar(&noStairs, "no-stairs", false, "disallow stairs connections")
	cmd.Flags().BoolVar(&noEscalator, "no-escalator", false, "disallow escalator connections")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

// pathCmd queries the intra-area pathfinder (C10).
func pathCmd() *cobra.Command {
	var (
		entity, area               string
		startX, startY, endX, endY float64
	)

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Query the intra-area pathfinder for a route between two points",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			res, err := client.entityScoped(entity).Path(context.Background(), entity, area, startX, startY, endX, endY)
			if err != nil {
				return fmt.Errorf("path: %w", err)
			}

			out, err := formatPathResult(res, outputFormat)
			if err != nil {
				return fmt.Errorf("format result: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity (mall) ID")
	cmd.Flags().StringVar(&area, "area", "", "area ID")
	cmd.Flags().Float64Var(&startX, "start-x", 0, "start point X")
	cmd.Flags().Float64Var(&startY, "start-y", 0, "start point Y")
	cmd.Flags().Float64Var(&endX, "end-x", 0, "end point X")
	cmd.Flags().Float64Var(&endY, "end-y", 0, "end point Y")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("area")

	return cmd
}
