// Package worker consumes broker events emitted by the API server.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/whiskeyshelf/apiserver/internal/mq"
	"github.com/whiskeyshelf/apiserver/internal/storage"
)

// Subscriber is the subset of *mq.MQ used by workers.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// ObjectDeleter removes stored objects.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// ImageCleanup deletes whiskey images that are no longer referenced.
type ImageCleanup struct {
	objects ObjectDeleter
	log     *slog.Logger
}

func NewImageCleanup(objects ObjectDeleter, log *slog.Logger) *ImageCleanup {
	if log == nil {
		log = slog.Default()
	}
	return &ImageCleanup{objects: objects, log: log}
}

// Run subscribes to image release events until ctx is done.
func (c *ImageCleanup) Run(ctx context.Context, sub Subscriber) error {
	c.log.Info("image cleanup worker started", "channel", mq.ChannelImageReplaced)
	return sub.Subscribe(ctx, mq.ChannelImageReplaced, c.Handle)
}

// Handle processes one event. Malformed payloads and keys outside the
// whiskey image prefix are acknowledged and dropped; storage failures are
// returned so the broker redelivers.
func (c *ImageCleanup) Handle(ctx context.Context, msg mq.Message) error {
	var event mq.ImageReplaced
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.log.Warn("dropping malformed image event", "message_id", msg.ID, "error", err)
		return nil
	}
	if !strings.HasPrefix(event.ObjectKey, storage.WhiskeyImagePrefix) {
		c.log.Warn("dropping image event with foreign key", "message_id", msg.ID, "key", event.ObjectKey)
		return nil
	}

	if err := c.objects.Delete(ctx, event.ObjectKey); err != nil {
		return fmt.Errorf("delete %s: %w", event.ObjectKey, err)
	}
	c.log.Info("deleted released image",
		"whiskey_id", event.WhiskeyID,
		"user_id", event.UserID,
		"key", event.ObjectKey,
	)
	return nil
}
