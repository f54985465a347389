package parser

import (
	"bytes"
	"encoding/csv"

	"realname/internal/method"
)

// templateRows are the sample rows shipped with the download template. They
// demonstrate a four-element row, a carrier three-element row, and a minimal
// two-element row.
var templateRows = [][]string{
	{"张三", "110101199003077774", "13800138000", "6222021234567890128", ""},
	{"李四", "11010519491231002X", "13900139000", "", "carrier_three"},
	{"王五", "110101199003077774", "", "", ""},
}

// Template renders the upload template: UTF-8 BOM so spreadsheet tools detect
// the encoding, the fixed canonical header row, and three sample rows.
func Template() []byte {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		method.FieldName,
		method.FieldIDNumber,
		method.FieldMobile,
		method.FieldBankCard,
		method.FieldMethod,
	})
	for _, row := range templateRows {
		_ = w.Write(row)
	}
	w.Flush()

	return buf.Bytes()
}
