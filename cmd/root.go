package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cartCmd "github.com/Alturino/pricing/cart/cmd"
	"github.com/Alturino/pricing/internal/constants"
	"github.com/Alturino/pricing/internal/log"
	pricingCmd "github.com/Alturino/pricing/pricing/cmd"
)

func Start() {
	// Each subcommand builds the configured logger once it has read its own
	// config. Until then everything goes to stdout.
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str(log.KeyAppName, constants.APP_MAIN).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	rootCmd := &cobra.Command{
		Use:   "pricing",
		Short: "Customer pricing and cart services",
	}
	commands := []*cobra.Command{
		{
			Use:   "pricing",
			Short: "Run pricing service",
			Run: func(cmd *cobra.Command, args []string) {
				pricingCmd.RunPricingService(cmd.Context())
			},
		},
		{
			Use:   "cart",
			Short: "Run cart service",
			Run: func(cmd *cobra.Command, args []string) {
				cartCmd.RunCartService(cmd.Context())
			},
		},
		{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context())
			},
		},
	}
	rootCmd.AddCommand(commands...)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
