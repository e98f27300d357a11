package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	common "github.com/example/pixauto-notifier/internal/adapters/common"
	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/models"
)

// ErrUnsupportedChannel is returned when no adapter is registered for a channel.
var ErrUnsupportedChannel = errors.New("notification: unsupported channel")

// DispatchPort delivers a single-channel notification.
type DispatchPort interface {
	Send(ctx context.Context, req models.DispatchRequest) (*models.DispatchResult, error)
}

// ChannelDispatcher implements DispatchPort by routing each request to the
// adapter registered for its channel.
type ChannelDispatcher struct {
	adapters map[models.Channel]common.Adapter
	logger   zerolog.Logger
}

// NewChannelDispatcher constructs a dispatcher over the supplied adapters. At
// least one channel must be registered.
func NewChannelDispatcher(adapters map[models.Channel]common.Adapter, log zerolog.Logger) (*ChannelDispatcher, error) {
	registered := make(map[models.Channel]common.Adapter, len(adapters))
	for channel, adapter := range adapters {
		if adapter == nil {
			return nil, fmt.Errorf("notification: nil adapter for channel %q", channel)
		}
		registered[channel] = adapter
	}
	if len(registered) == 0 {
		return nil, errors.New("notification: at least one channel adapter is required")
	}
	return &ChannelDispatcher{
		adapters: registered,
		logger:   logger.Component(log, "channel_dispatcher"),
	}, nil
}

// Send hands the request to the channel adapter and converts its response.
func (d *ChannelDispatcher) Send(ctx context.Context, req models.DispatchRequest) (*models.DispatchResult, error) {
	adapter, ok := d.adapters[req.Channel]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", common.ErrPermanent, ErrUnsupportedChannel, req.Channel)
	}

	resp, err := adapter.Send(ctx, &req)
	result := resp.Result(req.Channel)
	if err != nil {
		return result, fmt.Errorf("dispatch %s: %w", req.Channel, err)
	}
	return result, nil
}
