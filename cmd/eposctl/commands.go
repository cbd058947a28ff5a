package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"epos-backend/internal/application/access"
	"epos-backend/internal/application/gate"
	"epos-backend/internal/application/plans"
	profilesvc "epos-backend/internal/application/profile"
	"epos-backend/internal/config"
	"epos-backend/internal/domain"
	"epos-backend/internal/infrastructure/appsync"
	"epos-backend/internal/infrastructure/database"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// loadConfig is swapped in tests.
var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eposctl",
		Short:         "Operator tools for the EPOS backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newProbeCmd(), newPlansCmd(), newHashPasswordCmd())
	return root
}

func newProbeCmd() *cobra.Command {
	var token, endpoint string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run the data backend reachability probe with an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("--token is required")
			}
			if endpoint == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				endpoint = cfg.GraphQLEndpoint
			}
			repo := &appsync.ProfileRepository{Client: &appsync.Client{Endpoint: endpoint}}
			svc := profilesvc.NewService(repo, nil)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			status := svc.BackendStatus(ctx, &domain.Session{UserID: "eposctl", Tokens: domain.Tokens{AccessToken: token}})
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", endpoint, status)
			if status != gate.StatusAvailable {
				return errors.Errorf("backend is %s", status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Cognito access token")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "GraphQL endpoint (defaults to config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "probe timeout")
	return cmd
}

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect the plan history",
	}
	var dsn, user string
	var since time.Duration
	list := &cobra.Command{
		Use:   "list",
		Short: "List plan requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(dsn)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			svc := plans.NewService(nil, db, nil, nil)

			var recs []domain.PlanRecord
			if user != "" {
				recs, err = svc.List(cmd.Context(), user)
			} else {
				recs, err = svc.Since(cmd.Context(), time.Now().Add(-since))
			}
			if err != nil {
				return errors.Wrap(err, "list plans")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PLAN ID\tUSER\tORGANIZATION\tSTATUS\tCREATED")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.PlanID, r.UserID, r.OrganizationName, r.Status, r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&dsn, "database", "", "database URL (defaults to config)")
	list.Flags().StringVar(&user, "user", "", "only this user's plans")
	list.Flags().DurationVar(&since, "since", 7*24*time.Hour, "how far back to list when --user is not set")
	cmd.AddCommand(list)
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash for ACCESS_PASSWORD_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "read password")
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			if pw == "" {
				return errors.New("password must not be empty")
			}
			hash, err := access.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func openDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		dsn = cfg.DatabaseURL
	}
	if dsn == "" {
		return nil, errors.New("no database configured (set DATABASE_URL or --database)")
	}
	db, err := database.Open(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return db, nil
}
