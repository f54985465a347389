package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realname/internal/method"
)

func TestValidIDNumber(t *testing.T) {
	t.Run("accepts exactly the computed check character", func(t *testing.T) {
		prefix := "11010119900307777"
		check := IDCheckChar(prefix)
		require.Equal(t, byte('4'), check)

		accepted := 0
		for _, c := range "0123456789X" {
			if ValidIDNumber(prefix + string(c)) {
				accepted++
				assert.Equal(t, check, byte(c))
			}
		}
		assert.Equal(t, 1, accepted, "exactly one of the 11 candidates must pass")
	})

	t.Run("accepts X check character", func(t *testing.T) {
		assert.True(t, ValidIDNumber("11010519491231002X"))
	})

	t.Run("rejects implausible structure", func(t *testing.T) {
		assert.False(t, ValidIDNumber("010101199003077774"), "region must not start with 0")
		assert.False(t, ValidIDNumber("110101199013077774"), "month 13")
		assert.False(t, ValidIDNumber("110101199003327774"), "day 32")
		assert.False(t, ValidIDNumber("11010119900307777"), "17 chars")
		assert.False(t, ValidIDNumber("1101011990030777741"), "19 chars")
	})

	t.Run("rejects lowercase x without sanitization", func(t *testing.T) {
		assert.False(t, ValidIDNumber("11010519491231002x"))
	})
}

func TestValidBankCard(t *testing.T) {
	t.Run("accepts valid Luhn numbers between 15 and 19 digits", func(t *testing.T) {
		for _, card := range []string{
			"4111111111111111",    // 16
			"6222021234567890128", // 19
			"378282246310005",     // 15
		} {
			assert.True(t, ValidBankCard(card), card)
		}
	})

	t.Run("rejects digit substitutions", func(t *testing.T) {
		assert.False(t, ValidBankCard("4111111111111112"))
		assert.False(t, ValidBankCard("6222021234567890123"))
	})

	t.Run("rejects out-of-range lengths and non-digits", func(t *testing.T) {
		assert.False(t, ValidBankCard("41111111111111"), "14 digits")
		assert.False(t, ValidBankCard("41111111111111111111"), "20 digits")
		assert.False(t, ValidBankCard("4111-1111-1111-1111"))
	})
}

func TestValidMobile(t *testing.T) {
	assert.True(t, ValidMobile("13800138000"))
	assert.True(t, ValidMobile("19912345678"))
	assert.False(t, ValidMobile("12345678901"), "prefix 12 not allocated")
	assert.False(t, ValidMobile("2380013800"))
	assert.False(t, ValidMobile("138001380001"), "11 digits only")
}

func TestValidOrgCreditCode(t *testing.T) {
	assert.True(t, ValidOrgCreditCode("91350100M000100Y43"))
	assert.False(t, ValidOrgCreditCode("91350100M000100Y44"), "wrong check char")
	assert.False(t, ValidOrgCreditCode("91350100I000100Y43"), "I excluded from alphabet")
	assert.False(t, ValidOrgCreditCode("91350100M000100Y4"), "17 chars")
}

func TestSanitize(t *testing.T) {
	fields := Sanitize(map[string]string{
		method.FieldName:     "  张三 ",
		method.FieldIDNumber: " 11010519491231002x",
		method.FieldBankCard: "6222 0212-3456 7890 128",
		method.FieldMobile:   " 13800138000 ",
	})

	assert.Equal(t, "张三", fields[method.FieldName])
	assert.Equal(t, "11010519491231002X", fields[method.FieldIDNumber])
	assert.Equal(t, "6222021234567890128", fields[method.FieldBankCard])
	assert.Equal(t, "13800138000", fields[method.FieldMobile])

	assert.True(t, ValidIDNumber(fields[method.FieldIDNumber]))
	assert.True(t, ValidBankCard(fields[method.FieldBankCard]))
}

func TestValidateFields(t *testing.T) {
	valid := map[string]string{
		method.FieldName:     "张三",
		method.FieldIDNumber: "110101199003077774",
		method.FieldMobile:   "13800138000",
		method.FieldBankCard: "6222021234567890128",
	}

	t.Run("valid four-element record passes", func(t *testing.T) {
		assert.Empty(t, ValidateFields(method.BankCardFour, valid))
	})

	t.Run("corrupted checksum yields one error", func(t *testing.T) {
		fields := map[string]string{
			method.FieldName:     "张三",
			method.FieldIDNumber: "110101199003077775",
		}
		errs := ValidateFields(method.PersonalTwo, fields)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "id_number")
	})

	t.Run("missing field reported as required", func(t *testing.T) {
		fields := map[string]string{method.FieldName: "张三"}
		errs := ValidateFields(method.CarrierThree, fields)
		require.Len(t, errs, 2)
		assert.True(t, strings.Contains(errs[0], "required"))
	})
}
