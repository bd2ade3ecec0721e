package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParsePrice normalizes a display price to an integer amount in the smallest
// currency unit by dropping every non-digit character. Anything without digits
// (or too large to represent) becomes 0.
func ParsePrice(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Price is an integer amount that also decodes from the legacy string form
// ("450000", "450 000 so'm") older favorites documents were written with.
type Price int64

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*p = 0
			return nil
		}
		*p = Price(ParsePrice(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil || f < 0 || f >= math.MaxInt64 {
		*p = 0
		return nil
	}
	*p = Price(int64(f))
	return nil
}
