package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	obs "github.com/emberalert/fire-risk/internal/core/observability"
	"github.com/emberalert/fire-risk/internal/invalidation"
)

// Cache is the slice of the prediction cache the consumer needs.
type Cache interface {
	ClearAll(ctx context.Context) (int, error)
}

type Consumer struct {
	cfg   Config
	log   zerolog.Logger
	cache Cache
}

func New(cfg Config, cache Cache, log zerolog.Logger) *Consumer {
	return &Consumer{cfg: cfg, log: log, cache: cache}
}

// Start consumes model-rollout events until ctx is canceled. Transient
// consumer-group errors are logged and retried.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cache == nil {
		return errors.New("kafkaconsumer: missing cache dependency")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.log.Info().
		Strs("brokers", c.cfg.Brokers).
		Str("topic", c.cfg.Topic).
		Str("group", c.cfg.GroupID).
		Msg("rollout consumer starting")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("rollout consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.log.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single rollout event: decode, validate, and
// flush the whole prediction namespace.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncKafkaConsumerError("decode")
		c.log.Error().
			Str("kind", "decode").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("kafka error")
		return fmt.Errorf("json decode: %w", err)
	}
	if err := ev.Validate(); err != nil {
		obs.IncKafkaConsumerError("validate")
		c.log.Error().Err(err).
			Str("kind", "validate").
			Str("op", ev.Op).
			Msg("kafka error")
		return fmt.Errorf("validate event: %w", err)
	}

	n, err := c.cache.ClearAll(ctx)
	if err != nil {
		obs.IncKafkaConsumerError("cache_clear")
		c.log.Error().Err(err).
			Str("kind", "cache_clear").
			Str("op", ev.Op).
			Msg("kafka error")
		return fmt.Errorf("cache clear: %w", err)
	}

	c.log.Info().
		Str("event", "invalidation").
		Str("op", ev.Op).
		Str("model_version", ev.ModelVersion).
		Int("keys", n).
		Msg("flushed prediction cache")

	return nil
}
