package start

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/denysvitali/autowaybler/cmd/root"
)

var priceLimit float64

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start charging at the station your vehicle is plugged in to",
	Long: `Start a charge session right away at the first station reporting a connected vehicle,
skipping the price check. The session is capped at the given spot price limit.
If no limit is provided, uses the configured maximum spot price.`,
	Example: `  # Start charging with the configured maximum as limit
  autowaybler start

  # Start charging with an explicit spot price limit
  autowaybler start --price-limit 0.9`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := root.GetConfig()
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}

		if priceLimit == 0 {
			priceLimit = cfg.MaxSpotPrice
		}
		if priceLimit < 0 {
			return fmt.Errorf("price limit must be positive")
		}

		client, err := root.NewClient()
		if err != nil {
			return err
		}
		defer client.Disconnect()

		if err := client.Initialize(cmd.Context()); err != nil {
			return err
		}

		log := root.GetLogger()
		log.Debugf("Starting charge with spot price limit %v", priceLimit)

		session, err := client.StartCharging(cmd.Context(), priceLimit)
		if err != nil {
			return fmt.Errorf("failed to start charging: %w", err)
		}
		if session == nil {
			fmt.Println("No station with a connected vehicle found.")
			return nil
		}

		fmt.Printf("✅ Charging started successfully\n")
		log.Debugf("Charge session response: %+v", session)
		return nil
	},
}

func init() {
	StartCmd.Flags().Float64Var(&priceLimit, "price-limit", 0, "Spot price limit for the session")

	root.RootCmd.AddCommand(StartCmd)
}
