package enrichment

import (
	"context"

	"github.com/example/pixauto-notifier/internal/models"
)

// StatusActive is the only subscription status trusted for contact data.
const StatusActive = "ACTIVE"

// MobileBillingPort reads mobile billing accounts.
type MobileBillingPort interface {
	GetBillingDetails(ctx context.Context, mobileBan string) (*models.BillingDetails, error)
}

// MobileSubscriberPort lists mobile lines owned by a document holder.
type MobileSubscriberPort interface {
	Find(ctx context.Context, document, status string) ([]models.Subscriber, error)
}

// ResidentialSubscriberPort lists residential contracts by contract number.
type ResidentialSubscriberPort interface {
	Find(ctx context.Context, contractNumber, status string) ([]models.Contract, error)
}
