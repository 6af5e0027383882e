package portal

import (
	"regexp"
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEMESTER NAME NORMALIZATION
// The portal's semester list carries display names and registration codes in
// several historical formats. DisplayName collapses them into one stable
// label ("Odd 2024"). The function is pure: the same label is re-derived when
// resolving a user selection back to its source ref, and the two derivations
// must agree exactly.
// ══════════════════════════════════════════════════════════════════════════════

var (
	parenPattern     = regexp.MustCompile(`\(([^)]*)\)`)
	fourDigitPattern = regexp.MustCompile(`\d{4}`)
	twoDigitPairs    = regexp.MustCompile(`(\d{2})\D+\d{2}`)
	twoDigitPattern  = regexp.MustCompile(`\d{2}`)
)

// DisplayName derives the stable human-readable label for a semester from
// its raw name and, if known, its registration code.
func DisplayName(rawName, registrationCode string) string {
	code := registrationCode
	if code == "" {
		code = extractRegistrationCode(rawName)
	}

	year := deriveYear(code, rawName)
	semType := classifySemesterType(code, rawName)

	switch {
	case semType != SemesterUnknown && year != "":
		return titleOf(semType) + " " + year
	case semType != SemesterUnknown:
		return titleOf(semType) + " Semester"
	default:
		return rawName
	}
}

// NormalizeSemester builds a Semester value with the derived label, type,
// and year filled in.
func NormalizeSemester(rawName, registrationCode string, ordinal int) Semester {
	code := registrationCode
	if code == "" {
		code = extractRegistrationCode(rawName)
	}

	return Semester{
		RawName:          rawName,
		DisplayName:      DisplayName(rawName, registrationCode),
		Type:             classifySemesterType(code, rawName),
		RegistrationCode: code,
		Year:             deriveYear(code, rawName),
		Ordinal:          ordinal,
	}
}

// deriveYear resolves the semester year. The full pattern precedence runs
// against the registration code, or against the raw name when there is no
// code at all; a code that merely lacks a year only allows the conservative
// 4-digit search of the raw name, since bare 2-digit runs there are as
// likely to be ordinals as years.
func deriveYear(code, rawName string) string {
	if y := extractYear(code); y != "" {
		return y
	}
	if code == "" {
		return extractYear(rawName)
	}
	return fourDigitPattern.FindString(rawName)
}

// extractRegistrationCode takes the parenthesized substring of a raw
// semester name, if present.
func extractRegistrationCode(rawName string) string {
	m := parenPattern.FindStringSubmatch(rawName)
	if m == nil {
		return ""
	}
	return m[1]
}

// extractYear recovers a 4-digit year from a registration code.
// Precedence: an explicit 4-digit run; else the first of two 2-digit runs;
// else a single 2-digit run. Bare 2-digit values map through the century
// rule v>=50 -> 19v, else 20v, which handles legacy 1900s codes.
func extractYear(code string) string {
	if code == "" {
		return ""
	}

	if y := fourDigitPattern.FindString(code); y != "" {
		return y
	}

	if m := twoDigitPairs.FindStringSubmatch(code); m != nil {
		return expandTwoDigitYear(m[1])
	}

	if v := twoDigitPattern.FindString(code); v != "" {
		return expandTwoDigitYear(v)
	}

	return ""
}

func expandTwoDigitYear(v string) string {
	n, err := strconv.Atoi(v)
	if err != nil {
		return ""
	}
	if n >= 50 {
		return "19" + v
	}
	return "20" + v
}

// classifySemesterType matches the registration code first, then the raw
// name. ODD is checked before EVE so codes like "ODDEVE" stay deterministic.
func classifySemesterType(code, rawName string) SemesterType {
	for _, s := range []string{strings.ToUpper(code), strings.ToUpper(rawName)} {
		if s == "" {
			continue
		}
		switch {
		case strings.Contains(s, "ODD"):
			return SemesterOdd
		case strings.Contains(s, "EVE"):
			return SemesterEven
		case strings.Contains(s, "SUMMER"):
			return SemesterSummer
		}
	}
	return SemesterUnknown
}

func titleOf(t SemesterType) string {
	switch t {
	case SemesterOdd:
		return "Odd"
	case SemesterEven:
		return "Even"
	case SemesterSummer:
		return "Summer"
	default:
		return "Unknown"
	}
}
