// Package numfmt parses and formats the locale-formatted numbers used by the
// tender datasets ("1,200", "450,000") and provides small statistics helpers.
package numfmt

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// thousandsSeparators are stripped before parsing.
var thousandsSeparators = strings.NewReplacer(",", "")

// ParseLocaleNumber strips thousands separators and parses the longest leading
// decimal prefix of s. It returns 0 for empty or unparseable input.
func ParseLocaleNumber(s string) float64 {
	if s == "" {
		return 0
	}

	cleaned := strings.TrimLeftFunc(thousandsSeparators.Replace(s), unicode.IsSpace)
	prefix := numericPrefix(cleaned)
	if prefix == "" {
		return 0
	}

	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// numericPrefix returns the longest prefix of s that forms a decimal literal:
// optional sign, digits with at most one dot, optional exponent.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}

	return strings.TrimSuffix(s[:i], ".")
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// FormatWithThousands renders n with English thousands separators ("1,200").
func FormatWithThousands(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// FormatRounded rounds f to the nearest integer and groups thousands.
func FormatRounded(f float64) string {
	return FormatWithThousands(int64(math.Round(f)))
}

// Median returns the median of values, or 0 for an empty slice.
// The input slice is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Positive returns the strictly positive values of in, preserving order.
func Positive(in []float64) []float64 {
	out := make([]float64, 0, len(in))
	for _, v := range in {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// FormatPriceRange renders a shekel range in short form, e.g. "₪450k-₪770k".
func FormatPriceRange(min, max float64) string {
	return formatPrice(min) + "-" + formatPrice(max)
}

func formatPrice(price float64) string {
	switch {
	case price >= 1_000_000:
		millions := price / 1_000_000
		if millions >= 10 {
			return fmt.Sprintf("₪%.1fM", math.Round(millions*10)/10)
		}
		return fmt.Sprintf("₪%.2fM", math.Round(millions*100)/100)
	case price >= 1000:
		return fmt.Sprintf("₪%dk", int64(math.Round(price/1000)))
	default:
		return "₪" + strconv.FormatFloat(price, 'f', -1, 64)
	}
}

// FormatSizeRange renders a square-metre range, e.g. `900-1200 מ"ר`.
func FormatSizeRange(min, max float64) string {
	return fmt.Sprintf(`%s-%s מ"ר`,
		strconv.FormatFloat(min, 'f', -1, 64),
		strconv.FormatFloat(max, 'f', -1, 64))
}
