package models

import "strings"

// DocumentKind distinguishes individual from corporate taxpayer documents.
type DocumentKind string

const (
	DocumentCPF  DocumentKind = "CPF"
	DocumentCNPJ DocumentKind = "CNPJ"
)

// Document is a taxpayer identifier. Value holds digits only.
type Document struct {
	Kind  DocumentKind `json:"kind"`
	Value string       `json:"value"`
}

// ContactChannels are the destinations resolved for a customer. CriteriaMet is
// true only when MSISDN was cross-validated against a subscriber record.
type ContactChannels struct {
	Email       string `json:"email,omitempty"`
	MSISDN      string `json:"msisdn,omitempty"`
	CriteriaMet bool   `json:"criteria_met"`
}

// HasAny reports whether at least one channel can be used.
func (c ContactChannels) HasAny() bool {
	return c.Email != "" || c.MSISDN != ""
}

// CustomerIdentity is the customer reconstructed from a stored payment payload.
// Empty strings mean the field was absent in the source. Values are request
// scoped; enrichment derives a new value with WithContacts.
type CustomerIdentity struct {
	Name           string          `json:"name,omitempty"`
	Document       *Document       `json:"document,omitempty"`
	MobileBan      string          `json:"mobile_ban,omitempty"`
	ContractNumber string          `json:"contract_number,omitempty"`
	OperatorCode   string          `json:"operator_code,omitempty"`
	CityCode       string          `json:"city_code,omitempty"`
	SegmentHint    string          `json:"segment_hint,omitempty"`
	Contacts       ContactChannels `json:"contacts"`
}

// Complete reports whether both name and document are present.
func (c *CustomerIdentity) Complete() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.Name) != "" && c.HasDocument()
}

// HasDocument reports whether a non-empty document is attached.
func (c *CustomerIdentity) HasDocument() bool {
	return c != nil && c.Document != nil && c.Document.Value != ""
}

// WithContacts returns a copy of the identity carrying the supplied channels.
func (c CustomerIdentity) WithContacts(contacts ContactChannels) CustomerIdentity {
	out := c
	if c.Document != nil {
		doc := *c.Document
		out.Document = &doc
	}
	out.Contacts = contacts
	return out
}
