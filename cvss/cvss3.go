// Package cvss implements the CVSSv3 vector codec: parsing a vector string,
// scoring it, and reading off the eight base metrics the graph's cvss3 row
// stores, built on the claircore toolkit's cvss module.
package cvss

import (
	"math"

	v3 "github.com/quay/claircore/toolkit/types/cvss"

	"github.com/sbomgraph/ingestor"
)

// V3 is a parsed CVSSv3.0/3.1 vector.
type V3 struct {
	inner v3.V3
}

// ParseV3 parses s as a CVSSv3 vector string, e.g.
// "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H".
func ParseV3(s string) (V3, error) {
	inner, err := v3.ParseV3(s)
	if err != nil {
		return V3{}, ingestor.Wrap("cvss.ParseV3", ingestor.ErrInvalidIdentifier, err)
	}
	return V3{inner: inner}, nil
}

// String renders the canonical vector string.
func (v V3) String() string { return v.inner.String() }

// Score computes the CVSSv3 score, rounded to one decimal digit per the
// CVSSv3 "smallest number, divisible by 0.1, that is greater than or equal
// to the input" rounding rule. The result is always the Temporal score, and
// uses the Environmental equations when those metrics are present, exactly
// as the toolkit computes it; base-only vectors fall through to the base
// score because unset Temporal/Environmental weights are the multiplicative
// identity.
func (v V3) Score() float64 {
	s := v.inner.Score()
	if math.IsNaN(s) {
		return 0
	}
	return s
}

// AttackVector returns the AV metric letter.
func (v V3) AttackVector() string { return v.metric(v3.V3AttackVector) }

// AttackComplexity returns the AC metric letter.
func (v V3) AttackComplexity() string { return v.metric(v3.V3AttackComplexity) }

// PrivilegesRequired returns the PR metric letter.
func (v V3) PrivilegesRequired() string { return v.metric(v3.V3PrivilegesRequired) }

// UserInteraction returns the UI metric letter.
func (v V3) UserInteraction() string { return v.metric(v3.V3UserInteraction) }

// Scope returns the S metric letter.
func (v V3) Scope() string { return v.metric(v3.V3Scope) }

// Confidentiality returns the C metric letter.
func (v V3) Confidentiality() string { return v.metric(v3.V3Confidentiality) }

// Integrity returns the I metric letter.
func (v V3) Integrity() string { return v.metric(v3.V3Integrity) }

// Availability returns the A metric letter.
func (v V3) Availability() string { return v.metric(v3.V3Availability) }

// MinorVersion reports 0 or 1 for CVSS:3.0 and CVSS:3.1 respectively.
func (v V3) MinorVersion() int {
	s := v.inner.String()
	if len(s) >= 8 && s[:8] == "CVSS:3.0" {
		return 0
	}
	return 1
}

func (v V3) metric(m v3.V3Metric) string {
	val := v.inner.Get(m)
	if val == v3.ValueUnset || val == v3.ValueInvalid {
		return ""
	}
	return string(rune(val))
}
