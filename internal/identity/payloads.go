package identity

import (
	"encoding/json"
	"strings"

	"github.com/example/pixauto-notifier/internal/models"
	"github.com/example/pixauto-notifier/internal/util"
)

// pixDebtor is the payer of a PIX Automático authorization.
type pixDebtor struct {
	Name string `json:"nome"`
	CPF  string `json:"cpf"`
	CNPJ string `json:"cnpj"`
}

type pixContract struct {
	ContractNumber string     `json:"numeroContrato"`
	MobileBan      string     `json:"mobileBan"`
	OperatorCode   string     `json:"codigoOperadora"`
	CityCode       string     `json:"codigoCidade"`
	Segment        string     `json:"segmento"`
	Debtor         *pixDebtor `json:"devedor"`
}

type pixAutomaticPayload struct {
	Contract *pixContract `json:"contrato"`
	Debtor   *pixDebtor   `json:"devedor"`
}

type journeyCustomer struct {
	Name string `json:"name"`
	CPF  string `json:"cpf"`
	CNPJ string `json:"cnpj"`
}

type singleJourneyContract struct {
	MobileBan string `json:"mobileBan"`
}

type singleJourneyPayload struct {
	Customer *journeyCustomer       `json:"customer"`
	Contract *singleJourneyContract `json:"contract"`
}

type recurringJourneyContract struct {
	ContractNumber string `json:"contractNumber"`
}

type recurringJourneyPayload struct {
	Customer *journeyCustomer          `json:"customer"`
	Contract *recurringJourneyContract `json:"contract"`
}

// payloadParser turns a raw payload into an identity. ok is false when the
// payload is not of the parser's shape.
type payloadParser struct {
	name  string
	parse func(raw json.RawMessage) (*models.CustomerIdentity, bool)
}

var payloadParsers = []payloadParser{
	{name: "pix_automatico", parse: parsePixAutomatic},
	{name: "single_journey", parse: parseSingleJourney},
	{name: "recurring_journey", parse: parseRecurringJourney},
}

func parsePixAutomatic(raw json.RawMessage) (*models.CustomerIdentity, bool) {
	var payload pixAutomaticPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}

	debtor := payload.Debtor
	if payload.Contract != nil && payload.Contract.Debtor != nil {
		debtor = payload.Contract.Debtor
	}
	if debtor == nil {
		return nil, false
	}

	identity := &models.CustomerIdentity{
		Name:     strings.TrimSpace(debtor.Name),
		Document: preferCPF(debtor.CPF, debtor.CNPJ),
	}
	if c := payload.Contract; c != nil {
		identity.MobileBan = strings.TrimSpace(c.MobileBan)
		identity.ContractNumber = strings.TrimSpace(c.ContractNumber)
		identity.OperatorCode = strings.TrimSpace(c.OperatorCode)
		identity.CityCode = strings.TrimSpace(c.CityCode)
		identity.SegmentHint = strings.TrimSpace(c.Segment)
	}
	return identity, true
}

func parseSingleJourney(raw json.RawMessage) (*models.CustomerIdentity, bool) {
	var payload singleJourneyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	if payload.Customer == nil || strings.TrimSpace(payload.Customer.CPF) == "" {
		return nil, false
	}

	identity := &models.CustomerIdentity{
		Name:     strings.TrimSpace(payload.Customer.Name),
		Document: document(models.DocumentCPF, payload.Customer.CPF),
	}
	if payload.Contract != nil {
		identity.MobileBan = strings.TrimSpace(payload.Contract.MobileBan)
	}
	return identity, true
}

func parseRecurringJourney(raw json.RawMessage) (*models.CustomerIdentity, bool) {
	var payload recurringJourneyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	if payload.Customer == nil || strings.TrimSpace(payload.Customer.CNPJ) == "" {
		return nil, false
	}

	identity := &models.CustomerIdentity{
		Name:     strings.TrimSpace(payload.Customer.Name),
		Document: document(models.DocumentCNPJ, payload.Customer.CNPJ),
	}
	if payload.Contract != nil {
		identity.ContractNumber = strings.TrimSpace(payload.Contract.ContractNumber)
	}
	return identity, true
}

func preferCPF(cpf, cnpj string) *models.Document {
	if doc := document(models.DocumentCPF, cpf); doc != nil {
		return doc
	}
	return document(models.DocumentCNPJ, cnpj)
}

// document normalizes value to the digit form of kind. A blank or
// wrong-length document counts as absent.
func document(kind models.DocumentKind, value string) *models.Document {
	normalize := util.NormalizeCPF
	if kind == models.DocumentCNPJ {
		normalize = util.NormalizeCNPJ
	}
	digits, err := normalize(value)
	if err != nil {
		return nil
	}
	return &models.Document{Kind: kind, Value: digits}
}
