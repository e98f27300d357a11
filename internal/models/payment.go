package models

import "encoding/json"

// PaymentRecord is the stored payment history for a transaction identifier.
type PaymentRecord struct {
	Identifier string         `json:"identifier"`
	Payments   []PaymentEntry `json:"payments"`
}

// PaymentEntry is a single stored payment. Payload keeps the raw provider body,
// whose shape depends on the journey that produced it.
type PaymentEntry struct {
	ID            string          `json:"id"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Status        string          `json:"status,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// BillingDetails is the mobile billing account view returned by the billing
// directory. Name and Document are informational only.
type BillingDetails struct {
	MobileBan string `json:"mobileBan"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Document  string `json:"document"`
}

// SubscriberAccount links a subscriber line to its billing account.
type SubscriberAccount struct {
	MobileBan string `json:"mobileBan"`
}

// Subscriber is a mobile line returned by the subscriber directory.
type Subscriber struct {
	MSISDN  string            `json:"msisdn"`
	Name    string            `json:"name"`
	Status  string            `json:"status"`
	Account SubscriberAccount `json:"account"`
}

// Contract is a residential contract returned by the contracts directory.
type Contract struct {
	ContractNumber string `json:"contractNumber"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	MSISDN         string `json:"msisdn"`
	Email          string `json:"email"`
}
