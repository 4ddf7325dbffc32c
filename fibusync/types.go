package fibusync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/models"
	"github.com/shopspring/decimal"
)

// Wire types for the Fibu mutation payload:
// {id, type, date, description, ledgerId, relationId, invoiceNumber,
//  rows: [{ledgerId, amount, description}], vat: [...]}

type fibuMutation struct {
	ID            int64         `json:"id"`
	Type          string        `json:"type"`
	Date          string        `json:"date"`
	Description   string        `json:"description"`
	LedgerId      flexString    `json:"ledgerId"`
	RelationId    flexString    `json:"relationId"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Rows          []fibuRow     `json:"rows"`
	Vat           []fibuVatLine `json:"vat"`
}

type fibuRow struct {
	LedgerId    flexString  `json:"ledgerId"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

// flexString accepts both JSON strings and bare numbers. The API reports
// ledger and relation ids as numbers for some administrations and strings
// for others.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

type fibuVatLine struct {
	Code   string      `json:"code"`
	Amount json.Number `json:"amount"`
}

func parseAmount(raw json.Number) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// DecodeMutation converts one raw Fibu payload into a cacheable mutation.
// Rejects records without an id, with an unknown type, or with unparseable
// amounts; the fetcher records those as per-record errors and keeps going.
func DecodeMutation(businessId string, raw json.RawMessage) (*models.CachedMutation, error) {
	var wire fibuMutation
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	if wire.ID == 0 {
		return nil, fmt.Errorf("mutation id missing")
	}
	mutationType, err := models.ParseMutationType(wire.Type)
	if err != nil {
		return nil, err
	}
	mutationDate, err := parseDate(wire.Date)
	if err != nil {
		return nil, fmt.Errorf("mutation %d: bad date %q: %w", wire.ID, wire.Date, err)
	}

	mutation := &models.CachedMutation{
		BusinessId:    businessId,
		ExternalId:    wire.ID,
		Type:          mutationType,
		MutationDate:  mutationDate,
		Description:   wire.Description,
		LedgerCode:    strings.TrimSpace(string(wire.LedgerId)),
		RelationCode:  strings.TrimSpace(string(wire.RelationId)),
		InvoiceNumber: strings.TrimSpace(wire.InvoiceNumber),
	}

	for i, row := range wire.Rows {
		amount, err := parseAmount(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("mutation %d row %d: bad amount %q: %w", wire.ID, i, row.Amount, err)
		}
		ledgerCode := strings.TrimSpace(string(row.LedgerId))
		if ledgerCode == "" {
			return nil, fmt.Errorf("mutation %d row %d: ledger id missing", wire.ID, i)
		}
		mutation.Rows = append(mutation.Rows, models.CachedMutationRow{
			LedgerCode:  ledgerCode,
			Amount:      amount,
			Description: row.Description,
		})
	}

	for i, vat := range wire.Vat {
		amount, err := parseAmount(vat.Amount)
		if err != nil {
			return nil, fmt.Errorf("mutation %d vat %d: bad amount %q: %w", wire.ID, i, vat.Amount, err)
		}
		mutation.VatLines = append(mutation.VatLines, models.CachedMutationVat{
			VatCode: vat.Code,
			Amount:  amount,
		})
	}

	return mutation, nil
}
