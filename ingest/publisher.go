package ingest

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"irisai/config"
	"irisai/core"
)

// Publisher emits synthetic frame messages on the frame channel at a fixed
// interval. It stands in for a capture source during local runs; the frame
// payload is empty because the stub analyzer only looks at the timestamp.
type Publisher struct {
	client   *redis.Client
	channel  string
	interval time.Duration
}

func NewPublisher(cfg *config.Config, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Publisher{client: client, channel: cfg.FrameChannel, interval: interval}
}

// Run publishes one frame per tick until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Printf("Frame publisher started, publishing to %q every %s", p.channel, p.interval)

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count++
			msg := core.FrameMessage{Timestamp: time.Now().Unix()}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Failed to marshal frame: %v", err)
				continue
			}
			if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
				log.Printf("Failed to publish frame: %v", err)
				continue
			}
			log.Printf("Frame #%d published at timestamp %d", count, msg.Timestamp)
		}
	}
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
