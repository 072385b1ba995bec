package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pysugar/fintrack/internal/auth/token"
	"github.com/pysugar/fintrack/internal/db"
	"github.com/pysugar/fintrack/internal/metrics"
	"github.com/spf13/cobra"
)

var sessionsUserID uint

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and maintain stored sessions",
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete every expired session once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg, log)
		if err != nil {
			return err
		}

		n, err := token.NewSweeper(db.NewSessionStore(database), 0, log).SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "swept %d expired session(s)\n", n)
		return nil
	},
}

var sessionsRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke every session of a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if sessionsUserID == 0 {
			return errors.New("--user is required")
		}
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg, log)
		if err != nil {
			return err
		}

		n, err := db.NewSessionStore(database).RevokeAllForUser(cmd.Context(), sessionsUserID)
		if err != nil {
			return err
		}
		metrics.SessionsRevokedTotal.WithLabelValues("cli").Add(float64(n))
		fmt.Fprintf(cmd.OutOrStdout(), "revoked %d session(s) of user %d\n", n, sessionsUserID)
		return nil
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sessions of a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if sessionsUserID == 0 {
			return errors.New("--user is required")
		}
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg, log)
		if err != nil {
			return err
		}

		sessions, err := db.NewSessionStore(database).ListForUser(cmd.Context(), sessionsUserID)
		if err != nil {
			return err
		}

		now := time.Now()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tEXPIRES\tLAST ACCESS\tSTATE")
		for _, s := range sessions {
			lastAccess := "-"
			if s.LastAccessedAt != nil {
				lastAccess = s.LastAccessedAt.Format(time.RFC3339)
			}
			state := "live"
			if !s.ExpiresAt.After(now) {
				state = "expired"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID,
				s.CreatedAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339), lastAccess, state)
		}
		return tw.Flush()
	},
}

func init() {
	for _, c := range []*cobra.Command{sessionsRevokeCmd, sessionsListCmd} {
		c.Flags().UintVar(&sessionsUserID, "user", 0, "user id")
	}
	sessionsCmd.AddCommand(sessionsSweepCmd, sessionsRevokeCmd, sessionsListCmd)
	rootCmd.AddCommand(sessionsCmd)
}
