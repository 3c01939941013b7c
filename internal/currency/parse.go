// Package currency converts locale-ambiguous marketplace price text
// into integer minor-currency units. All monetary arithmetic in the
// analyzer is done in cents; floats appear only transiently while
// interpreting the decimal separator of the source text.
package currency

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`\d[\d.,]*`)

// Qualifier words stripped before the numeric token is searched.
var qualifiers = []string{"or more"}

// ParseCents extracts the first numeric token from text and returns its
// value in cents. The second return is false when no numeric token is
// present or the token cannot be interpreted.
//
// Separator disambiguation: when both ',' and '.' appear, the
// rightmost of the two is the decimal separator and the other is a
// thousands separator; a single ',' with no '.' is decimal; otherwise
// every separator is a thousands separator.
func ParseCents(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}
	t := strings.TrimSpace(html.UnescapeString(text))
	for _, q := range qualifiers {
		t = strings.TrimSpace(strings.ReplaceAll(t, q, ""))
	}

	num := numberRe.FindString(t)
	if num == "" {
		return 0, false
	}

	comma := strings.LastIndex(num, ",")
	dot := strings.LastIndex(num, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.ReplaceAll(num, ",", ".")
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case strings.Count(num, ",") == 1 && dot < 0:
		num = strings.ReplaceAll(num, ",", ".")
	default:
		num = strings.ReplaceAll(num, ",", "")
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(value * 100)), true
}

// FirstInt returns the integer formed by every digit in text, 0 when
// text holds no digits. Used for quantity cells and listing totals.
func FirstInt(text string) int {
	var b strings.Builder
	for _, ch := range text {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		// Digit run longer than an int; saturate rather than fail.
		return math.MaxInt
	}
	return n
}
