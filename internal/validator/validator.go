// Package validator holds the pure format and checksum predicates for each
// credential kind, plus the pre-validation sanitizer.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"realname/internal/method"
)

var (
	// idStructure accepts 18-character resident IDs with a plausible region
	// prefix and birth date. The final character may be a digit or X.
	idStructure = regexp.MustCompile(`^[1-9]\d{5}(18|19|20)\d{2}(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])\d{3}[\dX]$`)

	// mobileStructure matches the current mobile numbering plan.
	mobileStructure = regexp.MustCompile(`^1[3-9]\d{9}$`)

	cardDigits = regexp.MustCompile(`^\d{15,19}$`)
)

// idWeights and idCheckChars implement the resident ID mod-11 checksum over
// the first 17 digits.
var idWeights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}

const idCheckChars = "10X98765432"

// creditAlphabet is the restricted character set of the unified social credit
// code; I, O, S, V and Z are excluded to avoid transcription confusion.
const creditAlphabet = "0123456789ABCDEFGHJKLMNPQRTUWXY"

var creditWeights = [17]int{1, 3, 9, 27, 19, 26, 16, 17, 20, 29, 25, 13, 8, 24, 10, 30, 28}

// ValidIDNumber reports whether raw is a structurally plausible resident ID
// whose check character matches the weighted mod-11 checksum.
func ValidIDNumber(raw string) bool {
	if !idStructure.MatchString(raw) {
		return false
	}
	return raw[17] == IDCheckChar(raw[:17])
}

// IDCheckChar computes the checksum character for a 17-digit ID prefix.
// Callers must pass exactly 17 digits.
func IDCheckChar(prefix string) byte {
	sum := 0
	for i := 0; i < 17; i++ {
		sum += int(prefix[i]-'0') * idWeights[i]
	}
	return idCheckChars[sum%11]
}

// ValidBankCard reports whether raw is a 15-19 digit card number passing the
// Luhn mod-10 check.
func ValidBankCard(raw string) bool {
	if !cardDigits.MatchString(raw) {
		return false
	}
	return luhnValid(raw)
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidMobile reports whether raw matches the mobile numbering plan.
func ValidMobile(raw string) bool {
	return mobileStructure.MatchString(raw)
}

// ValidOrgCreditCode reports whether raw is an 18-character unified social
// credit code with a valid mod-31 weighted checksum.
func ValidOrgCreditCode(raw string) bool {
	if len(raw) != 18 {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		v := strings.IndexByte(creditAlphabet, raw[i])
		if v < 0 {
			return false
		}
		sum += v * creditWeights[i]
	}
	want := creditAlphabet[(31-sum%31)%31]
	return raw[17] == want
}

// Sanitize normalizes raw row fields before validation: all values are
// trimmed, a trailing lowercase x on the ID field is upper-cased, and
// whitespace and hyphens are stripped from the bank card field.
func Sanitize(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		v = strings.TrimSpace(v)
		switch k {
		case method.FieldIDNumber:
			if strings.HasSuffix(v, "x") {
				v = v[:len(v)-1] + "X"
			}
		case method.FieldBankCard:
			v = strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(v)
		}
		out[k] = v
	}
	return out
}

// ValidateFields checks every field the method requires and returns one
// message per failed predicate. An empty slice means the record is valid.
func ValidateFields(m method.Method, fields map[string]string) []string {
	var errs []string
	for _, key := range m.RequiredFields() {
		value := fields[key]
		if value == "" {
			errs = append(errs, fmt.Sprintf("%s is required for %s", key, m))
			continue
		}
		switch key {
		case method.FieldIDNumber:
			if !ValidIDNumber(value) {
				errs = append(errs, "id_number failed structure or checksum validation")
			}
		case method.FieldMobile:
			if !ValidMobile(value) {
				errs = append(errs, "mobile does not match the numbering plan")
			}
		case method.FieldBankCard:
			if !ValidBankCard(value) {
				errs = append(errs, "bank_card failed length or Luhn validation")
			}
		}
	}
	return errs
}
