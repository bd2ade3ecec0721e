// Package money renders integer amounts for display.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultLocale = "uz"
	DefaultSuffix = "so'm"
)

// Formatter groups digits the way Locale does and appends Suffix.
type Formatter struct {
	printer *message.Printer
	suffix  string
}

// NewFormatter falls back to DefaultLocale when locale cannot be parsed.
func NewFormatter(locale, suffix string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Make(DefaultLocale)
	}
	return Formatter{printer: message.NewPrinter(tag), suffix: suffix}
}

func Default() Formatter { return NewFormatter(DefaultLocale, DefaultSuffix) }

// Format renders amount as e.g. "1 200 000 so'm".
func (f Formatter) Format(amount int64) string {
	s := f.printer.Sprintf("%d", amount)
	if f.suffix == "" {
		return s
	}
	return s + " " + f.suffix
}

// FormatDiscount renders a discount line, which is always shown with a minus.
func (f Formatter) FormatDiscount(amount int64) string {
	if amount < 0 {
		amount = -amount
	}
	return "-" + f.Format(amount)
}
