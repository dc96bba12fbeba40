package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"airtime/internal/core"
	"airtime/internal/domain/operator"
	"airtime/internal/store/postgres"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Check the balance of every registered SIM once",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mustStore(); err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.engine.UpdateAllBalances(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SIM\tOPERATOR\tBALANCE")
		for _, r := range results {
			balance := r.Balance
			if r.Err != nil {
				balance = core.Reason(r.Err)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", r.SIMID, r.Operator, balance)
		}
		return w.Flush()
	},
}

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "Validate the operator directory and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		directory, err := operator.LoadFile(cfg.Operators.File)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SHORT\tNUMERIC\tCOUNTRY\tBALANCE\tIDENTITIES")
		for _, d := range directory.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Short, d.Numeric, d.CountryName, d.BalanceCommand, strings.Join(d.Identities, ","))
		}
		return w.Flush()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mustStore(); err != nil {
			return err
		}
		pool, err := postgres.Open(cmd.Context(), cfg.DB.DSN, cfg.DB.ConnectWait)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}
