package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default pub/sub channel names for the worker protocol.
const (
	DefaultCommandChannel = "catalog:cache:commands"
	DefaultReplyChannel   = "catalog:cache:replies"
)

// RedisConduit transports protocol messages over Redis pub/sub.
// Commands are published on the command channel; the peer worker
// publishes replies on the reply channel.
type RedisConduit struct {
	client         *redis.Client
	commandChannel string
	replyChannel   string
	logger         zerolog.Logger

	sub     *redis.PubSub
	msgs    chan Message
	closeMu sync.Mutex
	closed  bool
}

// NewRedisConduit creates a conduit over the given Redis client and
// starts consuming the reply channel.
func NewRedisConduit(client *redis.Client, commandChannel, replyChannel string, logger zerolog.Logger) *RedisConduit {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if commandChannel == "" {
		commandChannel = DefaultCommandChannel
	}
	if replyChannel == "" {
		replyChannel = DefaultReplyChannel
	}

	c := &RedisConduit{
		client:         client,
		commandChannel: commandChannel,
		replyChannel:   replyChannel,
		logger:         logger,
		msgs:           make(chan Message, 16),
	}

	c.sub = client.Subscribe(context.Background(), replyChannel)
	go c.pump()

	return c
}

// Send publishes a message on the command channel.
func (c *RedisConduit) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal bridge message: %w", err)
	}
	if err := c.client.Publish(ctx, c.commandChannel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Receive returns the channel of messages from the reply channel.
func (c *RedisConduit) Receive() <-chan Message {
	return c.msgs
}

// Close unsubscribes and closes the message channel.
func (c *RedisConduit) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sub.Close()
}

// pump decodes reply-channel payloads into protocol messages.
// Undecodable payloads are dropped.
func (c *RedisConduit) pump() {
	defer close(c.msgs)

	for redisMsg := range c.sub.Channel() {
		var msg Message
		if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
			c.logger.Warn().Err(err).Msg("dropping undecodable worker reply")
			continue
		}
		c.msgs <- msg
	}
}
