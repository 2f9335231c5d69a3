package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAssessment is returned for out-of-range assessment values
var ErrInvalidAssessment = errors.New("invalid assessment")

// NotAssessed is the text of any assessment field left unset
const NotAssessed = "NA"

// BIRADS is an ACR BI-RADS final assessment category
type BIRADS string

// BI-RADS categories. Category 4 may be given as a whole or subdivided.
const (
	BIRADSUnset BIRADS = ""
	BIRADS0     BIRADS = "0"
	BIRADS1     BIRADS = "1"
	BIRADS2     BIRADS = "2"
	BIRADS3     BIRADS = "3"
	BIRADS4     BIRADS = "4"
	BIRADS4A    BIRADS = "4A"
	BIRADS4B    BIRADS = "4B"
	BIRADS4C    BIRADS = "4C"
	BIRADS5     BIRADS = "5"
	BIRADS6     BIRADS = "6"
)

var biradsCategories = []BIRADS{
	BIRADS0, BIRADS1, BIRADS2, BIRADS3, BIRADS4,
	BIRADS4A, BIRADS4B, BIRADS4C, BIRADS5, BIRADS6,
}

// ParseBIRADS accepts "4a", "BI-RADS 4A", "birads5" and similar spellings.
// An empty string or "NA" gives BIRADSUnset.
func ParseBIRADS(s string) (BIRADS, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" || v == NotAssessed {
		return BIRADSUnset, nil
	}
	for _, prefix := range []string{"BI-RADS", "BIRADS"} {
		v = strings.TrimSpace(strings.TrimPrefix(v, prefix))
	}
	for _, c := range biradsCategories {
		if v == string(c) {
			return c, nil
		}
	}
	return BIRADSUnset, fmt.Errorf("%w: unknown BI-RADS category %q", ErrInvalidAssessment, s)
}

// Valid reports whether b is a known category or unset
func (b BIRADS) Valid() bool {
	if b == BIRADSUnset {
		return true
	}
	for _, c := range biradsCategories {
		if b == c {
			return true
		}
	}
	return false
}

func (b BIRADS) String() string {
	if b == BIRADSUnset {
		return NotAssessed
	}
	return "BI-RADS " + string(b)
}

// Pathology is the biopsy-proven result of a case
type Pathology string

const (
	PathologyUnknown   Pathology = ""
	PathologyBenign    Pathology = "Benign"
	PathologyMalignant Pathology = "Malignant"
)

// ParsePathology is case-insensitive; "" and "NA" give PathologyUnknown
func ParsePathology(s string) (Pathology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na":
		return PathologyUnknown, nil
	case "benign":
		return PathologyBenign, nil
	case "malignant":
		return PathologyMalignant, nil
	}
	return PathologyUnknown, fmt.Errorf("%w: unknown pathology %q", ErrInvalidAssessment, s)
}

func (p Pathology) String() string {
	if p == PathologyUnknown {
		return NotAssessed
	}
	return string(p)
}

// Assessment is the reading of a whole case. Zero numeric fields mean the
// value was not assessed.
type Assessment struct {
	// Subtlety rates how hard the finding is to see, 1 (subtle) to 5 (obvious)
	Subtlety int

	// Density is the ACR breast density, 1 (fatty) to 4 (extremely dense)
	Density int

	Category  BIRADS
	Pathology Pathology
}

// Validate checks every field against its range
func (a Assessment) Validate() error {
	if a.Subtlety < 0 || a.Subtlety > 5 {
		return fmt.Errorf("%w: subtlety %d not in 1..5", ErrInvalidAssessment, a.Subtlety)
	}
	if a.Density < 0 || a.Density > 4 {
		return fmt.Errorf("%w: density %d not in 1..4", ErrInvalidAssessment, a.Density)
	}
	if !a.Category.Valid() {
		return fmt.Errorf("%w: unknown BI-RADS category %q", ErrInvalidAssessment, string(a.Category))
	}
	switch a.Pathology {
	case PathologyUnknown, PathologyBenign, PathologyMalignant:
	default:
		return fmt.Errorf("%w: unknown pathology %q", ErrInvalidAssessment, string(a.Pathology))
	}
	return nil
}

// Fields returns the assessment as display strings keyed by field name
func (a Assessment) Fields() map[string]string {
	rating := func(v int) string {
		if v == 0 {
			return NotAssessed
		}
		return fmt.Sprint(v)
	}
	return map[string]string{
		"subtlety":   rating(a.Subtlety),
		"density":    rating(a.Density),
		"assessment": a.Category.String(),
		"pathology":  a.Pathology.String(),
	}
}
