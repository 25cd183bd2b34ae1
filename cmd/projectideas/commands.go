package main

import (
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacentio/projectideas/internal/app"
	"github.com/jacentio/projectideas/internal/config"
	"github.com/jacentio/projectideas/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "projectideas",
		Short:        "Administer the projectideas document store",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	config.RegisterFlags(root.PersistentFlags())

	build := func(cmd *cobra.Command) (*app.App, error) {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return nil, err
		}
		logger, err := logging.New(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("failed init logger: %w", err)
		}
		return app.Build(cmd.Context(), cfg, logger, prometheus.DefaultRegisterer)
	}

	root.AddCommand(
		newTablesCommand(build),
		newStreamCommand(build),
		newUserCommand(build),
		newMessageCommand(build),
	)
	return root
}

type builder func(cmd *cobra.Command) (*app.App, error)

func newTablesCommand(build builder) *cobra.Command {
	tables := &cobra.Command{
		Use:   "tables",
		Short: "Manage DynamoDB tables",
	}
	tables.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create one table per container; existing tables are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Logger.Sync() }()
			if err := a.CreateTables(cmd.Context()); err != nil {
				return err
			}
			a.Logger.Info("tables are ready", zap.String("prefix", a.Config.Store.TablePrefix))
			return nil
		},
	})
	return tables
}

func newStreamCommand(build builder) *cobra.Command {
	return &cobra.Command{
		Use:   "stream",
		Short: "Run the users table stream handler as a Lambda function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}
			if a.Streams == nil {
				return errors.New("stream handler needs store.stream_renames enabled")
			}
			lambda.Start(a.Streams.HandleUserChanges)
			return nil
		},
	}
}

func newUserCommand(build builder) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "User maintenance",
	}
	user.AddCommand(
		&cobra.Command{
			Use:   "rename <userId> <username>",
			Short: "Change a username and rewrite every copy of it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := build(cmd)
				if err != nil {
					return err
				}
				defer func() { _ = a.Logger.Sync() }()

				u, err := a.Manager.GetUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				u.Username = args[1]
				return a.Manager.UpdateUser(cmd.Context(), u)
			},
		},
		&cobra.Command{
			Use:   "repair <userId>",
			Short: "Rewrite copies of a username that missed an earlier rename",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := build(cmd)
				if err != nil {
					return err
				}
				defer func() { _ = a.Logger.Sync() }()

				u, err := a.Manager.GetUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.Manager.PropagateUsername(cmd.Context(), u.UserID, u.Username)
			},
		},
	)
	return user
}

func newMessageCommand(build builder) *cobra.Command {
	var projectID string

	message := &cobra.Command{
		Use:   "message",
		Short: "Send system messages",
	}
	admin := &cobra.Command{
		Use:   "admin <userId|-> <content>",
		Short: "Send a system message to a user, or with --project to every member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Logger.Sync() }()

			if projectID != "" {
				return a.Messages.SendGroupAdminMessage(cmd.Context(), projectID, args[1])
			}
			return a.Messages.SendIndividualAdminMessage(cmd.Context(), args[0], args[1])
		},
	}
	admin.Flags().StringVar(&projectID, "project", "", "send to every member of this project")
	message.AddCommand(admin)
	return message
}
