package main

import (
	"context"
	"os"

	"airtime/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cfg config.Cfg

var rootCmd = &cobra.Command{
	Use:   "airtimed",
	Short: "Airtime transfers and balance checks over USSD",
	Long: `airtimed drives SIM cards in a modem bank: it checks balances, sends
airtime transfers through the operators' USSD menus and reconciles the
confirmation messages the operators send back.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if cfg.IsDev() {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, sweepCmd, operatorsCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("airtimed failed")
		os.Exit(1)
	}
}
