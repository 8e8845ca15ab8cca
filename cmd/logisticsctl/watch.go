package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/messaging/kafka"
)

func newWatchCmd(c *cli) *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream record change events from Kafka as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			brokers := splitList(c.v.GetString("kafka.brokers"))
			if len(brokers) == 0 {
				return errors.New("kafka brokers are required: use --brokers or LOGISTICSCTL_KAFKA_BROKERS")
			}
			only, err := parseKinds(kinds)
			if err != nil {
				return err
			}

			var mu sync.Mutex
			enc := json.NewEncoder(cmd.OutOrStdout())
			handler := kafka.ChangeEventHandler(func(_ context.Context, event domain.ChangeEvent) error {
				if len(only) > 0 && !only[event.Kind] {
					return nil
				}
				mu.Lock()
				defer mu.Unlock()
				return enc.Encode(event)
			})

			consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:       brokers,
				GroupID:       c.v.GetString("kafka.group"),
				Topics:        []string{c.v.GetString("kafka.topic")},
				FromBeginning: c.v.GetBool("kafka.from-beginning"),
			}, handler)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return consumer.Stop()
		},
	}

	flags := cmd.Flags()
	flags.String("brokers", "", "comma separated Kafka brokers")
	flags.String("topic", kafka.TopicRecordEvents, "topic with record change events")
	flags.String("group", "logisticsctl-watch", "consumer group id")
	flags.Bool("from-beginning", false, "read the topic from the oldest offset")
	flags.StringSliceVar(&kinds, "kind", nil, "only print events of these record kinds (order, container, good)")
	_ = c.v.BindPFlag("kafka.brokers", flags.Lookup("brokers"))
	_ = c.v.BindPFlag("kafka.topic", flags.Lookup("topic"))
	_ = c.v.BindPFlag("kafka.group", flags.Lookup("group"))
	_ = c.v.BindPFlag("kafka.from-beginning", flags.Lookup("from-beginning"))
	return cmd
}

func parseKinds(raw []string) (map[domain.RecordKind]bool, error) {
	only := make(map[domain.RecordKind]bool, len(raw))
	for _, item := range raw {
		kind := domain.RecordKind(strings.ToLower(strings.TrimSpace(item)))
		switch kind {
		case domain.KindOrder, domain.KindContainer, domain.KindGood:
			only[kind] = true
		default:
			return nil, fmt.Errorf("unknown record kind %q", item)
		}
	}
	return only, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
