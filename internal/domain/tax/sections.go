package tax

import (
	"strings"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/samber/lo"
)

// Section is a Chapter VI-A (or section 24) deduction code.
type Section string

const (
	Section80C     Section = "80C"
	Section80CCC   Section = "80CCC"
	Section80CCD1  Section = "80CCD(1)"
	Section80CCD1B Section = "80CCD(1B)"
	Section80CCD2  Section = "80CCD(2)"
	Section80CCH   Section = "80CCH"
	Section80D     Section = "80D"
	Section80DD    Section = "80DD"
	Section80DDB   Section = "80DDB"
	Section80E     Section = "80E"
	Section80EE    Section = "80EE"
	Section80EEA   Section = "80EEA"
	Section80G     Section = "80G"
	Section80GG    Section = "80GG"
	Section80TTA   Section = "80TTA"
	Section80TTB   Section = "80TTB"
	Section80U     Section = "80U"
	Section24B     Section = "24(b)"
)

var knownSections = []Section{
	Section80C, Section80CCC, Section80CCD1, Section80CCD1B, Section80CCD2, Section80CCH,
	Section80D, Section80DD, Section80DDB, Section80E, Section80EE, Section80EEA,
	Section80G, Section80GG, Section80TTA, Section80TTB, Section80U, Section24B,
}

// ParseSection matches a section code case-insensitively.
func ParseSection(s string) (Section, error) {
	code := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, known := range knownSections {
		if strings.ToUpper(string(known)) == code {
			return known, nil
		}
	}
	return "", validator.Single("section", "unknown deduction section")
}

func allowedSections(regimeType RegimeType) []Section {
	if regimeType == RegimeNew {
		return []Section{Section80CCD2, Section80CCH}
	}
	return lo.Without(knownSections, Section80CCH)
}

func sectionCaps(regimeType RegimeType, tier AgeTier) map[Section]money.Money {
	if regimeType == RegimeNew {
		return map[Section]money.Money{}
	}
	senior := tier != AgeTierNormal

	caps := map[Section]money.Money{
		Section80C:     money.FromInt(150_000),
		Section80CCC:   money.FromInt(150_000),
		Section80CCD1:  money.FromInt(150_000),
		Section80CCD1B: money.FromInt(50_000),
		Section80D:     money.FromInt(25_000),
		Section80DD:    money.FromInt(125_000),
		Section80DDB:   money.FromInt(40_000),
		Section80EE:    money.FromInt(50_000),
		Section80EEA:   money.FromInt(150_000),
		Section80GG:    money.FromInt(60_000),
		Section80TTA:   money.FromInt(10_000),
		Section80TTB:   money.FromInt(50_000),
		Section80U:     money.FromInt(125_000),
		Section24B:     money.FromInt(200_000),
	}
	if senior {
		caps[Section80D] = money.FromInt(50_000)
		caps[Section80DDB] = money.FromInt(100_000)
		// 80TTB replaces 80TTA for senior citizens.
		caps[Section80TTA] = money.Zero()
	} else {
		caps[Section80TTB] = money.Zero()
	}
	return caps
}

func combinedCaps(regimeType RegimeType) []CombinedCap {
	if regimeType == RegimeNew {
		return nil
	}
	return []CombinedCap{{
		Name:     "80CCE",
		Sections: []Section{Section80C, Section80CCC, Section80CCD1},
		Limit:    money.FromInt(150_000),
	}}
}
