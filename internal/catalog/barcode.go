package catalog

import (
	"fmt"
	"math/rand"
)

// productCodeDigits is the width of the per-product segment inside the
// EAN-13 number. Country (3) + manufacturer (5) + product (4) + check (1).
const productCodeDigits = 4

// newProductCode draws a random zero-padded code from the 4-digit space.
// Uniqueness is enforced by the products table; callers retry on collision.
func newProductCode() string {
	return fmt.Sprintf("%0*d", productCodeDigits, rand.Intn(10000))
}

// ean13 assembles the full barcode number from its prefixes and the product
// code, appending the standard modulo-10 check digit.
func ean13(country, manufacturer, productCode string) (string, error) {
	payload := country + manufacturer + productCode
	if len(payload) != 12 {
		return "", fmt.Errorf("barcode payload must be 12 digits, got %d", len(payload))
	}

	sum := 0
	for i, r := range payload {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("barcode payload must be numeric, got %q", payload)
		}
		digit := int(r - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	check := (10 - sum%10) % 10
	return fmt.Sprintf("%s%d", payload, check), nil
}
