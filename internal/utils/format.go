package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatINR renders a rupee amount with Indian digit grouping, e.g.
// 1234567.5 -> "₹12,34,568" (0 decimals) or "₹12,34,567.50" (2 decimals).
func FormatINR(value float64, decimals int) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	pow := math.Pow10(decimals)
	value = math.Round(value*pow) / pow

	s := fmt.Sprintf("%.*f", decimals, value)
	intPart := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		frac = s[i:]
	}

	return sign + "₹" + groupIndian(intPart) + frac
}

// groupIndian inserts commas in the lakh/crore pattern: the last three digits
// form one group, every preceding pair another.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// Truncate shortens a string to at most n runes, appending an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
