// Package identifiers normalizes the ISBNs stored on catalog books.
package identifiers

import (
	"strings"
	"unicode"
)

// NormalizeISBN removes hyphens, spaces, and common prefixes from an ISBN.
func NormalizeISBN(value string) string {
	value = strings.TrimSpace(strings.ToUpper(value))
	value = strings.TrimPrefix(value, "ISBN:")
	value = strings.TrimPrefix(value, "ISBN-13:")
	value = strings.TrimPrefix(value, "ISBN")

	// Keep only digits and X (for ISBN-10 checksum)
	var result strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) || r == 'X' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// CatalogISBN turns user input into the 13 character form stored on a book.
// Valid ISBN-10s are converted to their ISBN-13 equivalent. The checksum of a
// 13 character value is not enforced; ok is false only when the normalized
// value can't be 13 characters long.
func CatalogISBN(value string) (isbn string, ok bool) {
	normalized := NormalizeISBN(value)
	if len(normalized) == 10 && ValidateISBN10(normalized) {
		return ISBN10To13(normalized), true
	}
	if len(normalized) != 13 || strings.ContainsRune(normalized, 'X') {
		return normalized, false
	}
	return normalized, true
}

// ValidateISBN10 validates an ISBN-10 checksum.
// ISBN-10 uses modulo 11 with weights 10,9,8,7,6,5,4,3,2,1.
func ValidateISBN10(isbn string) bool {
	if len(isbn) != 10 {
		return false
	}

	var sum int
	for i, r := range isbn {
		var digit int
		switch {
		case r == 'X':
			if i != 9 {
				return false // X only valid as last digit
			}
			digit = 10
		case unicode.IsDigit(r):
			digit = int(r - '0')
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// ValidateISBN13 validates an ISBN-13 checksum.
// ISBN-13 uses alternating weights of 1 and 3.
func ValidateISBN13(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	return isbn13CheckDigit(isbn[:12]) == isbn[12]
}

// ISBN10To13 converts a valid ISBN-10 to the 978-prefixed ISBN-13.
func ISBN10To13(isbn10 string) string {
	body := "978" + isbn10[:9]
	return body + string(isbn13CheckDigit(body))
}

func isbn13CheckDigit(first12 string) byte {
	var sum int
	for i, r := range first12 {
		if !unicode.IsDigit(r) {
			return 0
		}
		digit := int(r - '0')
		if i%2 == 0 {
			sum += digit
		} else {
			sum += digit * 3
		}
	}
	return byte('0' + (10-sum%10)%10)
}
