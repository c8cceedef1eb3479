package arinc665

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ManufacturerCode is the 3-character manufacturer prefix of a PartNumber
// (§3, §4.D). Kept as its own validated type per original_source's
// ManufacturerCode.hpp, rather than a raw substring of PartNumber.
type ManufacturerCode string

func newManufacturerCode(s string) (ManufacturerCode, error) {
	if len(s) != 3 || !isUpperAlnum(s) {
		return "", errors.Wrapf(InvalidPartNumber, "manufacturer code %q", s)
	}
	return ManufacturerCode(s), nil
}

// ProductIdentifier is the 8-character product identifier of a PartNumber,
// excluding the letters I, O, Q and Z (§3). Kept as its own validated type
// per original_source's ProductIdentifier.hpp.
type ProductIdentifier string

const productIdentifierExcluded = "IOQZ"

func newProductIdentifier(s string) (ProductIdentifier, error) {
	if len(s) != 8 {
		return "", errors.Wrapf(InvalidPartNumber, "product identifier %q: wrong length", s)
	}
	for _, r := range s {
		if !isUpperAlnumRune(r) || strings.ContainsRune(productIdentifierExcluded, r) {
			return "", errors.Wrapf(InvalidPartNumber, "product identifier %q: invalid character %q", s, r)
		}
	}
	return ProductIdentifier(s), nil
}

// PartNumber is the 13-character ARINC part number: a 3-character
// manufacturer code, a 2-digit hex check code, and an 8-character product
// identifier (§3, §4.D).
type PartNumber struct {
	Manufacturer ManufacturerCode
	ProductID    ProductIdentifier
}

// NewPartNumber builds a PartNumber from its two components and computes
// the check code; it never fails on the check code itself since that is
// derived, not validated, at this entry point.
func NewPartNumber(manufacturer, productID string) (PartNumber, error) {
	m, err := newManufacturerCode(manufacturer)
	if err != nil {
		return PartNumber{}, err
	}
	p, err := newProductIdentifier(productID)
	if err != nil {
		return PartNumber{}, err
	}
	return PartNumber{Manufacturer: m, ProductID: p}, nil
}

// ParsePartNumber parses a 13-character part number string, validating the
// embedded check code against the recomputed one (§3, §8 "PartNumber law").
func ParsePartNumber(s string) (PartNumber, error) {
	if len(s) != 13 {
		return PartNumber{}, errors.Wrapf(InvalidPartNumber, "%q: expected 13 characters, got %d", s, len(s))
	}
	manufacturer, check, productID := s[0:3], s[3:5], s[5:13]
	pn, err := NewPartNumber(manufacturer, productID)
	if err != nil {
		return PartNumber{}, err
	}
	want := pn.checkCode()
	if !strings.EqualFold(check, want) {
		return PartNumber{}, errors.Wrapf(InvalidPartNumber, "%q: check code %s does not match computed %s", s, check, want)
	}
	return pn, nil
}

// checkCode XORs every byte of the manufacturer code and product
// identifier into a single byte and renders it as two uppercase hex
// digits (§3, §4.D).
func (p PartNumber) checkCode() string {
	var x byte
	for i := 0; i < len(p.Manufacturer); i++ {
		x ^= p.Manufacturer[i]
	}
	for i := 0; i < len(p.ProductID); i++ {
		x ^= p.ProductID[i]
	}
	return fmt.Sprintf("%02X", x)
}

// String renders the full 13-character part number.
func (p PartNumber) String() string {
	return string(p.Manufacturer) + p.checkCode() + string(p.ProductID)
}

func isUpperAlnum(s string) bool {
	for _, r := range s {
		if !isUpperAlnumRune(r) {
			return false
		}
	}
	return true
}

func isUpperAlnumRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// MediumNumber is a saturating 8-bit counter identifying a medium within a
// Media Set (§3). It saturates rather than wrapping: incrementing 255
// stays 255, decrementing 1 stays 1.
type MediumNumber uint8

// DefaultMediumNumber is the implicit medium number of a newly constructed
// Media Set (§3).
const DefaultMediumNumber MediumNumber = 1

// Inc returns m+1, saturating at 255.
func (m MediumNumber) Inc() MediumNumber {
	if m == 255 {
		return 255
	}
	return m + 1
}

// Dec returns m-1, saturating at 1.
func (m MediumNumber) Dec() MediumNumber {
	if m <= 1 {
		return 1
	}
	return m - 1
}

// String renders the medium number zero-padded to 3 digits, e.g. "001".
func (m MediumNumber) String() string {
	return fmt.Sprintf("%03d", uint8(m))
}

// ValidFilename reports whether name satisfies the ARINC filename
// predicate (§3, §4.D): 1..255 characters, only uppercase letters,
// digits, '.', '_', '-', and not "." or "..".
func ValidFilename(name string) bool {
	if len(name) < 1 || len(name) > 255 {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// reservedListFilenames are present at the root of every medium (§3, §6).
var reservedListFilenames = map[string]bool{
	"FILES.LUM":   true,
	"LOADS.LUM":   true,
	"BATCHES.LUM": true,
}

// IsReservedListFilename reports whether name is one of the three
// per-medium list file names.
func IsReservedListFilename(name string) bool {
	return reservedListFilenames[name]
}

const (
	loadHeaderExtension = ".LUH"
	batchExtension      = ".LUB"
)
