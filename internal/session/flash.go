package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelError   = "error"
)

type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Flashes stores one-shot messages per session in a Redis list.
type Flashes struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFlashes(client *redis.Client, ttl time.Duration) *Flashes {
	return &Flashes{client: client, ttl: ttl}
}

func flashKey(sessionID string) string {
	return "flash:" + sessionID
}

func (f *Flashes) Add(ctx context.Context, sessionID, level, text string) error {
	data, err := json.Marshal(Message{Level: level, Text: text})
	if err != nil {
		return fmt.Errorf("marshal flash: %w", err)
	}

	key := flashKey(sessionID)
	_, err = f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.Expire(ctx, key, f.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("add flash: %w", err)
	}
	return nil
}

// Pop returns all pending messages in insertion order and clears them.
func (f *Flashes) Pop(ctx context.Context, sessionID string) ([]Message, error) {
	key := flashKey(sessionID)

	var values *redis.StringSliceCmd
	_, err := f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		values = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pop flashes: %w", err)
	}

	messages := make([]Message, 0, len(values.Val()))
	for _, raw := range values.Val() {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
