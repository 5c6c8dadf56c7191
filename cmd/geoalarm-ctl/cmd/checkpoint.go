package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/geo"
	"github.com/oshokin/geoalarm/internal/service/client"
)

// checkpointCmd groups checkpoint management.
//
//nolint:gochecknoglobals // Cobra commands are package-level by convention.
var checkpointCmd = &cobra.Command{
	Use:     "checkpoint",
	Aliases: []string{"cp"},
	Short:   "Manage checkpoints.",
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	var (
		input     domain.CheckpointInput
		latitude  string
		longitude string
	)

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a checkpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error

			if input.Latitude, err = geo.ParseCoordinate(latitude); err != nil {
				return fmt.Errorf("latitude: %w", err)
			}

			if input.Longitude, err = geo.ParseCoordinate(longitude); err != nil {
				return fmt.Errorf("longitude: %w", err)
			}

			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.AddCheckpoint(ctx, input)
			})
		},
	}

	addCmd.Flags().StringVar(&input.ID, "id", "", "checkpoint id (generated when empty)")
	addCmd.Flags().StringVarP(&input.Label, "label", "l", "", "checkpoint name")
	addCmd.Flags().StringVar(&latitude, "lat", "", "center latitude")
	addCmd.Flags().StringVar(&longitude, "lon", "", "center longitude")
	addCmd.Flags().Float64VarP(&input.RadiusMeters, "radius", "r", 0, "trigger radius in meters")

	for _, name := range []string{"label", "lat", "lon", "radius"} {
		if err := addCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	removeCmd := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a checkpoint.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.RemoveCheckpoint(ctx, args[0])
			})
		},
	}

	var from string

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List checkpoints in creation order.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" {
				return run(cmd, func(ctx context.Context, c *client.Controller) error {
					return c.ListCheckpoints(ctx)
				})
			}

			var (
				p   domain.Position
				err error
			)

			if p.Latitude, p.Longitude, err = geo.ParsePoint(from); err != nil {
				return fmt.Errorf("from: %w", err)
			}

			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.ListCheckpointsFrom(ctx, p)
			})
		},
	}

	listCmd.Flags().StringVar(&from, "from", "", `show distances from a "latitude,longitude" position`)

	checkpointCmd.AddCommand(addCmd, removeCmd, listCmd)
	rootCmd.AddCommand(checkpointCmd)
}
