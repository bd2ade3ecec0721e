package money

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

// digits drops grouping separators, whatever rune the locale uses for them.
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '-' {
			return r
		}
		return -1
	}, s)
}

func TestFormatGroupsAndSuffixes(t *testing.T) {
	f := Default()

	got := f.Format(1200000)
	assert.True(t, strings.HasSuffix(got, " so'm"), got)
	assert.Equal(t, "1200000", digits(strings.TrimSuffix(got, " so'm")))
	assert.Greater(t, len([]rune(got)), len("1200000 so'm"), "grouping separators expected: %q", got)

	assert.Equal(t, "0 so'm", f.Format(0))
	assert.Equal(t, "999 so'm", f.Format(999))
}

func TestFormatDiscount(t *testing.T) {
	f := NewFormatter("en", "USD")
	assert.Equal(t, "-1,500 USD", f.FormatDiscount(1500))
	assert.Equal(t, "-1,500 USD", f.FormatDiscount(-1500))
	assert.Equal(t, "-0 USD", f.FormatDiscount(0))
}

func TestFormatterFallsBackOnBadLocale(t *testing.T) {
	f := NewFormatter("!!", "")
	assert.Equal(t, "42", digits(f.Format(42)))
	assert.NotContains(t, f.Format(42), " ")
}
