package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"

	"irisai/config"
	"irisai/core"
)

// Consumer subscribes to the frame channel and feeds each message through
// the pipeline. Frame processing is best-effort: a malformed message or a
// failed frame is logged and the loop keeps consuming, frames are processed
// in arrival order with no ack or retry.
type Consumer struct {
	client   *redis.Client
	channel  string
	pipeline *Pipeline
}

func NewConsumer(cfg *config.Config, pipeline *Pipeline) *Consumer {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Consumer{client: client, channel: cfg.FrameChannel, pipeline: pipeline}
}

// Ping checks the transport connection.
func (c *Consumer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Run blocks consuming frames until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	pubsub := c.client.Subscribe(ctx, c.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	log.Printf("Frame consumer started, listening to %q channel", c.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, payload []byte) {
	var frame core.FrameMessage
	if err := json.Unmarshal(payload, &frame); err != nil {
		log.Printf("Skipping malformed frame message: %v", err)
		return
	}
	log.Printf("Received frame at timestamp: %d", frame.Timestamp)

	if err := c.pipeline.ProcessFrame(ctx, frame); err != nil {
		if errors.Is(err, ErrSkipped) {
			log.Printf("Frame %d skipped: no description", frame.Timestamp)
			return
		}
		log.Printf("Error processing frame %d: %v", frame.Timestamp, err)
	}
}

func (c *Consumer) Close() error {
	return c.client.Close()
}
