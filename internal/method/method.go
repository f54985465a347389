// Package method resolves which verification method a record carries enough
// data for.
package method

import "strings"

// Canonical field keys produced by the parser and consumed across the pipeline.
const (
	FieldName     = "name"
	FieldIDNumber = "id_number"
	FieldMobile   = "mobile"
	FieldBankCard = "bank_card"
	FieldMethod   = "method"
)

// Method is a specific verification technique requiring a fixed set of input
// fields.
type Method string

const (
	// PersonalTwo checks name + ID number against the citizen registry.
	PersonalTwo Method = "personal_two"

	// CarrierThree checks name + ID number + mobile against the carrier.
	CarrierThree Method = "carrier_three"

	// BankCardThree checks name + ID number + bank card against the bank.
	BankCardThree Method = "bank_card_three"

	// BankCardFour checks name + ID number + mobile + bank card against the bank.
	BankCardFour Method = "bank_card_four"
)

// detectionOrder lists methods by required-field count descending. Detection
// always picks the method whose full requirement set is satisfied first in
// this order, so the largest satisfied superset wins.
var detectionOrder = []Method{BankCardFour, BankCardThree, CarrierThree, PersonalTwo}

var requiredFields = map[Method][]string{
	PersonalTwo:   {FieldName, FieldIDNumber},
	CarrierThree:  {FieldName, FieldIDNumber, FieldMobile},
	BankCardThree: {FieldName, FieldIDNumber, FieldBankCard},
	BankCardFour:  {FieldName, FieldIDNumber, FieldMobile, FieldBankCard},
}

// methodAliases accepts the spellings operators put in upload files.
var methodAliases = map[string]Method{
	"personal_two":    PersonalTwo,
	"two":             PersonalTwo,
	"carrier_three":   CarrierThree,
	"three_carrier":   CarrierThree,
	"bank_card_three": BankCardThree,
	"three_bank":      BankCardThree,
	"bank_card_four":  BankCardFour,
	"four":            BankCardFour,
}

// Parse resolves a raw method code to a known Method.
func Parse(raw string) (Method, bool) {
	m, ok := methodAliases[strings.ToLower(strings.TrimSpace(raw))]
	return m, ok
}

// IsValid reports whether m is a known method.
func (m Method) IsValid() bool {
	_, ok := requiredFields[m]
	return ok
}

// RequiredFields returns the canonical field keys a method needs.
func (m Method) RequiredFields() []string {
	return requiredFields[m]
}

// Detect resolves the most specific method the given fields have enough data
// for. An explicit, known method code in FieldMethod wins; otherwise the
// method requiring the largest satisfied field set is chosen, never the first
// textual match. Returns false when not even the two-element check is
// satisfiable.
func Detect(fields map[string]string) (Method, bool) {
	if raw := strings.TrimSpace(fields[FieldMethod]); raw != "" {
		if m, ok := Parse(raw); ok {
			return m, true
		}
	}

	for _, m := range detectionOrder {
		if hasAll(fields, requiredFields[m]) {
			return m, true
		}
	}
	return "", false
}

func hasAll(fields map[string]string, keys []string) bool {
	for _, key := range keys {
		if strings.TrimSpace(fields[key]) == "" {
			return false
		}
	}
	return true
}
