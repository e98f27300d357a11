package directory

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/models"
)

// BillingClient reads mobile billing accounts from GET /billing-accounts/{ban}.
type BillingClient struct{ c *client }

// NewBillingClient constructs a BillingClient for baseURL.
func NewBillingClient(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...Option) (*BillingClient, error) {
	c, err := newClient("mobile_billing", baseURL, timeout, log, opts)
	if err != nil {
		return nil, err
	}
	return &BillingClient{c: c}, nil
}

// GetBillingDetails returns nil without error when the account is unknown.
func (b *BillingClient) GetBillingDetails(ctx context.Context, mobileBan string) (*models.BillingDetails, error) {
	ban := strings.TrimSpace(mobileBan)
	if ban == "" {
		return nil, nil
	}
	var details models.BillingDetails
	found, err := b.c.getJSON(ctx, "/billing-accounts/"+url.PathEscape(ban), nil, &details)
	if err != nil || !found {
		return nil, err
	}
	return &details, nil
}

// SubscriberClient lists mobile lines from GET /subscribers?document=&status=.
type SubscriberClient struct{ c *client }

// NewSubscriberClient constructs a SubscriberClient for baseURL.
func NewSubscriberClient(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...Option) (*SubscriberClient, error) {
	c, err := newClient("mobile_subscriber", baseURL, timeout, log, opts)
	if err != nil {
		return nil, err
	}
	return &SubscriberClient{c: c}, nil
}

// Find returns the lines owned by document in the given status.
func (s *SubscriberClient) Find(ctx context.Context, document, status string) ([]models.Subscriber, error) {
	query := url.Values{}
	query.Set("document", document)
	if status != "" {
		query.Set("status", status)
	}
	var subscribers []models.Subscriber
	if _, err := s.c.getJSON(ctx, "/subscribers", query, &subscribers); err != nil {
		return nil, err
	}
	return subscribers, nil
}

// ContractClient lists residential contract holders from
// GET /contracts/{number}/subscribers?status=.
type ContractClient struct{ c *client }

// NewContractClient constructs a ContractClient for baseURL.
func NewContractClient(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...Option) (*ContractClient, error) {
	c, err := newClient("residential_subscriber", baseURL, timeout, log, opts)
	if err != nil {
		return nil, err
	}
	return &ContractClient{c: c}, nil
}

// Find returns the subscribers of contractNumber in the given status.
func (r *ContractClient) Find(ctx context.Context, contractNumber, status string) ([]models.Contract, error) {
	number := strings.TrimSpace(contractNumber)
	if number == "" {
		return nil, nil
	}
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var contracts []models.Contract
	if _, err := r.c.getJSON(ctx, "/contracts/"+url.PathEscape(number)+"/subscribers", query, &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}
