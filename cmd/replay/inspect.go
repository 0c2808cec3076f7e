package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"ptbscope/internal/application"
	"ptbscope/internal/artifact"
	"ptbscope/internal/config"
	"ptbscope/internal/domain"
	"ptbscope/internal/infrastructure/storage"
	"ptbscope/internal/interfaces/httpapi"

	"github.com/spf13/cobra"
)

func inspectCommand() *cobra.Command {
	var (
		files       bundleFiles
		persist     bool
		summaryOnly bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <dir>",
		Short: "aggregate a replay directory and print the transaction view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := readBundle(args[0], files)
			if err != nil {
				return err
			}
			var tx *domain.Transaction
			if persist {
				tx, err = ingest(cmd.Context(), b)
			} else {
				tx, err = application.Aggregate(b)
			}
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), tx, summaryOnly)
		},
	}
	addBundleFlags(cmd, &files)
	cmd.Flags().BoolVar(&persist, flagStore, false, "persist the replay through the configured store")
	cmd.Flags().BoolVar(&summaryOnly, flagSummary, false, "print only the summary")
	return cmd
}

func ingest(ctx context.Context, b artifact.Bundle) (*domain.Transaction, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	service, err := application.NewReplayService(store, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	tx, _, err := service.Ingest(ctx, b)
	return tx, err
}

func render(w io.Writer, tx *domain.Transaction, summaryOnly bool) error {
	var (
		out []byte
		err error
	)
	if summaryOnly {
		out, err = json.MarshalIndent(application.Summarize(tx), "", "  ")
	} else {
		out, err = httpapi.MarshalTransaction(tx)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
