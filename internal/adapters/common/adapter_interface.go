package common

import (
	"context"

	"github.com/example/pixauto-notifier/internal/models"
)

// Adapter turns a dispatch request into a provider call for one channel and
// returns the normalized provider response alongside a classified error.
type Adapter interface {
	Send(ctx context.Context, req *models.DispatchRequest) (*ProviderResponse, error)
}
