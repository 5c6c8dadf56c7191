package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/geoalarm/internal/domain/alarm"
	"github.com/oshokin/geoalarm/internal/geo"
	"github.com/oshokin/geoalarm/internal/service/client"
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	var latitude, longitude string

	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Report the current position to the daemon.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				p   = domain.Position{Timestamp: time.Now()}
				err error
			)

			if p.Latitude, err = geo.ParseCoordinate(latitude); err != nil {
				return fmt.Errorf("latitude: %w", err)
			}

			if p.Longitude, err = geo.ParseCoordinate(longitude); err != nil {
				return fmt.Errorf("longitude: %w", err)
			}

			return run(cmd, func(ctx context.Context, c *client.Controller) error {
				return c.SubmitPosition(ctx, p)
			})
		},
	}

	positionCmd.Flags().StringVar(&latitude, "lat", "", "latitude")
	positionCmd.Flags().StringVar(&longitude, "lon", "", "longitude")

	for _, name := range []string{"lat", "lon"} {
		if err := positionCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(positionCmd)
}
