// Package parser turns delimited upload files into ordered row field maps with
// normalized headers.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"realname/internal/method"
	dErrors "realname/pkg/domain-errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one data row of an upload, in file order. Number is the 1-based data
// row index (the header is not counted).
type Row struct {
	Number int
	Fields map[string]string
}

// headerSynonyms maps collapsed header spellings (lower-cased, separators
// stripped) to canonical field keys. Operators upload files from several
// back-office systems, so both English and Chinese headers appear.
var headerSynonyms = map[string]string{
	"name":     method.FieldName,
	"fullname": method.FieldName,
	"realname": method.FieldName,
	"姓名":       method.FieldName,
	"名字":       method.FieldName,

	"idnumber":       method.FieldIDNumber,
	"idno":           method.FieldIDNumber,
	"idcard":         method.FieldIDNumber,
	"idcardno":       method.FieldIDNumber,
	"identitynumber": method.FieldIDNumber,
	"身份证号":           method.FieldIDNumber,
	"身份证号码":          method.FieldIDNumber,
	"证件号码":           method.FieldIDNumber,

	"mobile":      method.FieldMobile,
	"mobilephone": method.FieldMobile,
	"phone":       method.FieldMobile,
	"phonenumber": method.FieldMobile,
	"telephone":   method.FieldMobile,
	"tel":         method.FieldMobile,
	"手机号":         method.FieldMobile,
	"手机号码":        method.FieldMobile,
	"电话":          method.FieldMobile,

	"bankcard":   method.FieldBankCard,
	"bankcardno": method.FieldBankCard,
	"cardno":     method.FieldBankCard,
	"cardnumber": method.FieldBankCard,
	"银行卡号":       method.FieldBankCard,
	"银行卡":        method.FieldBankCard,

	"method":       method.FieldMethod,
	"authmethod":   method.FieldMethod,
	"verifymethod": method.FieldMethod,
	"认证方式":         method.FieldMethod,
	"认证类型":         method.FieldMethod,
}

// Parse reads delimited content into ordered rows. The delimiter is chosen
// from the declared content type (tab-separated values or CSV). A data row
// whose field count differs from the header is dropped; a missing or
// unreadable header aborts the whole parse.
func Parse(content []byte, contentType string) ([]Row, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = delimiterFor(contentType)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "file has no readable header row")
	}

	keys := make([]string, len(header))
	named := 0
	for i, h := range header {
		keys[i] = canonicalKey(h)
		if keys[i] != "" {
			named++
		}
	}
	if named == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "file has no readable header row")
	}

	var rows []Row
	number := 0
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Unreadable row: treat like a malformed row and drop it.
			continue
		}
		number++
		if len(cells) != len(keys) {
			// Field count mismatch with the header: dropped, not failed.
			continue
		}
		fields := make(map[string]string, len(keys))
		for i, key := range keys {
			fields[key] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, Row{Number: number, Fields: fields})
	}
	return rows, nil
}

// canonicalKey normalizes a header cell through the synonym table. Unmapped
// headers fall back to their lower-cased, separator-stripped form.
func canonicalKey(header string) string {
	collapsed := strings.NewReplacer(" ", "", "-", "", "_", "").
		Replace(strings.ToLower(strings.TrimSpace(header)))
	if canonical, ok := headerSynonyms[collapsed]; ok {
		return canonical
	}
	return collapsed
}

func delimiterFor(contentType string) rune {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "tab-separated") || strings.HasSuffix(ct, ".tsv") {
		return '\t'
	}
	return ','
}
