package autocharge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/denysvitali/autowaybler/autocharge"
	"github.com/denysvitali/autowaybler/cmd/root"
)

var AutochargeCmd = &cobra.Command{
	Use:   "autocharge",
	Short: "Start charging when the spot price is low enough",
	Long: `Autocharge checks whether a vehicle is plugged in to one of your Waybler stations,
looks up the cheapest spot price in the look-ahead window and starts a charge session
when it does not exceed the configured maximum.`,
}

var autochargeOnceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run the charge check once",
	Long:  `Check conditions and start charging if needed, then exit.`,
	RunE:  runAutochargeOnce,
}

var autochargeScheduledCmd = &cobra.Command{
	Use:   "scheduled",
	Short: "Run the charge check on a cron schedule",
	Long: `Run the charge check according to the configured cron expression (CRON)
in the configured time zone (TZ) until SIGINT or SIGTERM is received.`,
	RunE: runScheduledAutocharge,
}

func init() {
	AutochargeCmd.AddCommand(autochargeOnceCmd)
	AutochargeCmd.AddCommand(autochargeScheduledCmd)

	root.RootCmd.AddCommand(AutochargeCmd)
}

func runAutochargeOnce(cmd *cobra.Command, args []string) error {
	service, err := createService()
	if err != nil {
		return err
	}

	outcome, err := service.RunCycle(cmd.Context())
	if err != nil {
		return fmt.Errorf("charging failed: %w", err)
	}
	root.GetLogger().Debugf("cycle finished: %s", outcome)
	return nil
}

func runScheduledAutocharge(cmd *cobra.Command, args []string) error {
	// Wait for time to be set (useful for embedded systems)
	waitForTimeSync()

	service, err := createService()
	if err != nil {
		return err
	}

	cfg := root.GetConfig()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	log := root.GetLogger()
	log.Info("autowaybler starting...")
	log.Infof("lookAhead=%vh, maxSpotPrice=%v", cfg.LookAheadHours, cfg.MaxSpotPrice)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	scheduler := autocharge.NewScheduler(func(ctx context.Context) {
		service.Tick(ctx)
	}, cfg.Cron, loc)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	if next, err := scheduler.NextRun(); err == nil && !next.IsZero() {
		log.Infof("Next check at %s", next.In(loc).Format("2006-01-02 15:04:05 Mon"))
	}

	<-sigChan
	log.Info("Shutting down...")
	scheduler.Stop()
	return nil
}

func createService() (*autocharge.Service, error) {
	cfg := root.GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return autocharge.NewWayblerService(cfg), nil
}

func waitForTimeSync() {
	epochPlus1Year := time.Unix(0, 0).Add(365 * 24 * time.Hour)
	for time.Now().Before(epochPlus1Year) {
		root.GetLogger().Debug("Waiting for time to be set...")
		time.Sleep(1 * time.Second)
	}
}
