// Package notify fans a digest out to every configured channel.
package notify

import (
	"context"
	"errors"
	"fmt"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/ports"
)

// ErrNoChannel reports that no delivery channel is configured.
var ErrNoChannel = errors.New("no notification channel configured")

// Channel is a named notifier.
type Channel struct {
	Name     string
	Notifier ports.Notifier
}

// Multi delivers to every channel and fails if any of them fails.
type Multi struct {
	channels []Channel
}

var _ ports.Notifier = (*Multi)(nil)

// NewMulti keeps channels in the given order.
func NewMulti(channels ...Channel) *Multi {
	return &Multi{channels: channels}
}

// Len counts configured channels.
func (m *Multi) Len() int {
	return len(m.channels)
}

// PublishDigest tries every channel even after a failure so one broken
// channel does not silence the others.
func (m *Multi) PublishDigest(ctx context.Context, d domain.Digest) error {
	if len(m.channels) == 0 {
		return ErrNoChannel
	}

	var errs []error
	for _, ch := range m.channels {
		if err := ch.Notifier.PublishDigest(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}
