package main

import (
	"errors"
	"fmt"

	"ptbscope/internal/application"
	"ptbscope/internal/config"
	"ptbscope/internal/infrastructure/kafka"

	"github.com/spf13/cobra"
)

func publishCommand() *cobra.Command {
	var files bundleFiles
	cmd := &cobra.Command{
		Use:   "publish <dir>",
		Short: "queue a replay directory on the bundle ingest topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			if cfg.KafkaIngestTopic == "" {
				return errors.New("KAFKA_INGEST_TOPIC is required")
			}
			b, err := readBundle(args[0], files)
			if err != nil {
				return err
			}
			// aggregate locally so only consistent bundles reach the topic
			tx, err := application.Aggregate(b)
			if err != nil {
				return err
			}

			producer, err := kafka.NewProducer(kafka.ProducerConfig{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.KafkaIngestTopic,
			})
			if err != nil {
				return err
			}
			defer producer.Close()

			if err := producer.PublishBundle(cmd.Context(), tx.Digest(), b); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queued %s on %s\n", tx.Digest(), cfg.KafkaIngestTopic)
			return err
		},
	}
	addBundleFlags(cmd, &files)
	return cmd
}
