// Package pdfreport recovers subject/marks pairs from the portal's generated
// marks report PDF. The report has no structured data, only positioned text,
// so extraction is a layout heuristic: good enough for a human to verify,
// not guaranteed exact.
package pdfreport

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"rsc.io/pdf"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
)

const errorDomain = "pdfreport"

// rowTolerance is the Y distance within which two text fragments are
// considered to sit on the same printed line.
const rowTolerance = 2.0

// boilerplatePrefixes mark lines that can never be subject names: page
// headers, institute name, column headers, the grade legend, weekday stamps
// and address fragments. Matched case-insensitively against the line start.
var boilerplatePrefixes = []string{
	"PAGE",
	"INSTITUTE",
	"UNIVERSITY",
	"DEPARTMENT OF",
	"PERFORMANCE REPORT",
	"T1 PERFORMANCE",
	"SUBJECT CODE",
	"SUBJECT NAME",
	"MARKS OBTAINED",
	"MAXIMUM MARKS",
	"GRADE LEGEND",
	"A - ABSENT",
	"STUDENT NAME",
	"ENROLLMENT",
	"REGISTRATION",
	"SEMESTER",
	"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY",
	"SECTOR",
	"PHONE",
	"EMAIL",
	"DATED",
}

// letterGrades are the grades the report prints in front of an
// obtained/total token.
var letterGrades = map[string]bool{"B": true, "C": true, "D": true, "F": true}

// Extractor parses marks report PDFs.
type Extractor struct{}

// New creates a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract recovers subject marks from raw PDF bytes. Internal failures,
// including parser panics on malformed documents, surface as a parsing
// error; callers degrade that to "no subjects found".
func (e *Extractor) Extract(pdfBytes []byte) (map[string]portal.SubjectMarks, error) {
	text, err := extractText(pdfBytes)
	if err != nil {
		return nil, portal.WrapError(errorDomain, "Extract", portal.ErrParsing, "unreadable marks report", err)
	}
	return e.ParseText(text), nil
}

// ParseText runs the line heuristics over already-extracted report text.
// Split out from Extract so the heuristics are testable without PDF bytes.
func (e *Extractor) ParseText(text string) map[string]portal.SubjectMarks {
	lines := strings.Split(text, "\n")
	subjects := make(map[string]portal.SubjectMarks)

	for i := 0; i < len(lines); i++ {
		name := strings.TrimSpace(lines[i])
		if !isSubjectLine(name) || i+1 >= len(lines) {
			continue
		}

		marks, ok := parseMarksLine(strings.TrimSpace(lines[i+1]))
		if !ok {
			continue
		}
		if i+2 < len(lines) {
			marks.SubjectCode = parenthesizedCode(lines[i+2])
		}

		subjects[name] = marks

		// Skip the consumed marks line so it cannot be misread as the
		// next subject name.
		i++
	}
	return subjects
}

// isSubjectLine applies the subject-name heuristics: not boilerplate, no
// digit within the first 10 characters, longer than 10 characters.
func isSubjectLine(line string) bool {
	if line == "" || len(line) <= 10 {
		return false
	}

	upper := strings.ToUpper(line)
	for _, prefix := range boilerplatePrefixes {
		if strings.HasPrefix(upper, prefix) {
			return false
		}
	}

	head := line
	if len(head) > 10 {
		head = head[:10]
	}
	for _, r := range head {
		if r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}

// parseMarksLine parses one marks line, in priority order: absent marker,
// letter grade with obtained/total, bare obtained/total, nothing.
func parseMarksLine(line string) (portal.SubjectMarks, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return portal.SubjectMarks{}, false
	}

	// "A 0.0/20.0" - absent
	if fields[0] == portal.AbsentMarker && len(fields) > 1 && strings.Contains(fields[1], "/") {
		return portal.SubjectMarks{Absent: true}, true
	}

	// "B 15.0/20.0" - letter grade with obtained marks
	if letterGrades[fields[0]] && len(fields) > 1 {
		if obtained, ok := numerator(fields[1]); ok {
			return portal.SubjectMarks{T1: obtained, Grade: fields[0]}, true
		}
	}

	// First token carrying a "/" - bare obtained marks
	for _, tok := range fields {
		if obtained, ok := numerator(tok); ok {
			return portal.SubjectMarks{T1: obtained}, true
		}
	}

	return portal.SubjectMarks{}, false
}

// numerator parses the part of token before its "/" as a float.
func numerator(token string) (float64, bool) {
	idx := strings.Index(token, "/")
	if idx <= 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(token[:idx], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parenthesizedCode returns the first parenthesized substring of line, ""
// when there is none.
func parenthesizedCode(line string) string {
	open := strings.Index(line, "(")
	if open < 0 {
		return ""
	}
	end := strings.Index(line[open:], ")")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(line[open+1 : open+end])
}

// ══════════════════════════════════════════════════════════════════════════════
// TEXT EXTRACTION
// ══════════════════════════════════════════════════════════════════════════════

// extractText pulls all text out of the PDF, page by page, reconstructing
// printed lines by Y position and joining everything with newlines. The pdf
// library panics on malformed input, so the whole walk runs under recover.
func extractText(pdfBytes []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, pageText(page.Content()))
	}
	return strings.Join(pages, "\n"), nil
}

// pageText groups one page's text fragments into printed lines.
func pageText(content pdf.Content) string {
	fragments := make([]pdf.Text, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) != "" {
			fragments = append(fragments, t)
		}
	}
	if len(fragments) == 0 {
		return ""
	}

	// Top of the page first, left to right within a line. PDF Y grows
	// upward.
	sort.SliceStable(fragments, func(i, j int) bool {
		if fragments[i].Y != fragments[j].Y {
			return fragments[i].Y > fragments[j].Y
		}
		return fragments[i].X < fragments[j].X
	})

	var lines []string
	var current []string
	rowY := fragments[0].Y

	flush := func() {
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
			current = current[:0]
		}
	}

	for _, f := range fragments {
		if rowY-f.Y > rowTolerance {
			flush()
			rowY = f.Y
		}
		current = append(current, f.S)
	}
	flush()

	return strings.Join(lines, "\n")
}
