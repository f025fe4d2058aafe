// Package bankcsv reads bank statement CSV exports into ledger rows.
package bankcsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/offertory/internal/encoding"
	"github.com/MrJamesThe3rd/offertory/internal/ledger"
)

var ErrUnknownFormat = errors.New("no matching statement format")

// MalformedRowError describes a statement row the parser dropped.
type MalformedRowError struct {
	Row    int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Statement is the parsed content of one export. Only credits become rows.
type Statement struct {
	Profile   string
	Charset   string
	Rows      []ledger.CreateParams
	Malformed []*MalformedRowError
	// Skipped counts debits and zero movements.
	Skipped int
}

func (s *Statement) Dropped() int {
	return len(s.Malformed)
}

// Parser reads statement exports, detecting the layout from the header row.
type Parser struct {
	loc *time.Location
}

// New returns a parser that reads posted dates as calendar days in loc.
func New(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}

	return &Parser{loc: loc}
}

var delimiters = []rune{';', ','}

// Parse reads r with the named profile, or detects one when profile is ProfileAuto.
func (p *Parser) Parse(r io.Reader, profile string) (*Statement, error) {
	candidates := profiles
	if profile != ProfileAuto {
		prof, ok := lookupProfile(profile)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", profile)
		}

		candidates = []Profile{*prof}
	}

	decoded, err := encoding.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}

	for _, comma := range delimiters {
		rows, err := readRows(data, comma)
		if err != nil {
			continue
		}

		prof, cols, headerIdx := detectProfile(candidates, rows)
		if prof == nil {
			continue
		}

		st := p.parseRows(prof, cols, rows[headerIdx+1:], headerIdx)
		st.Charset = decoded.Charset

		return st, nil
	}

	return nil, ErrUnknownFormat
}

func readRows(data []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return rows, nil
}

// colIndex maps normalized column names to their index in the row.
type colIndex map[string]int

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c colIndex) index(name string) int {
	if name == "" {
		return -1
	}

	if i, ok := c[normalize(name)]; ok {
		return i
	}

	return -1
}

func detectProfile(candidates []Profile, rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := normalize(cell); name != "" {
				if _, dup := cols[name]; !dup {
					cols[name] = i
				}
			}
		}

		for i := range candidates {
			if matchesProfile(&candidates[i], cols) {
				return &candidates[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if cols.index(name) < 0 {
			return false
		}
	}

	return true
}

// parseRows turns data rows into credits. headerRowNum is the 0-based index of the header line.
func (p *Parser) parseRows(prof *Profile, cols colIndex, rows [][]string, headerRowNum int) *Statement {
	st := &Statement{Profile: prof.Name}

	dateIdx := cols.index(prof.DateCol)
	descIdx := cols.index(prof.DescCol)
	refIdx := cols.index(prof.RefCol)

	for i, row := range rows {
		rowNum := headerRowNum + i + 2 // 1-based, skipping header

		if blank(row) {
			continue
		}

		drop := func(reason string) {
			slog.Warn("dropping malformed statement row", "profile", prof.Name, "row", rowNum, "reason", reason)
			st.Malformed = append(st.Malformed, &MalformedRowError{Row: rowNum, Reason: reason})
		}

		dateCell := cellValue(row, dateIdx)
		if !strings.ContainsAny(dateCell, "0123456789") {
			// Totals and page footers carry no date.
			continue
		}

		date, ok := p.parseDate(prof, dateCell)
		if !ok {
			drop("invalid date")
			continue
		}

		desc := cellValue(row, descIdx)
		if desc == "" {
			drop("missing description")
			continue
		}

		amount, credit, err := parseMovement(prof, cols, row)
		if err != nil {
			drop("invalid amount")
			continue
		}

		if !credit {
			st.Skipped++
			continue
		}

		params := ledger.CreateParams{
			Date:        date,
			Amount:      amount,
			Description: desc,
		}

		if ref := cellValue(row, refIdx); ref != "" {
			params.Reference = &ref
		}

		st.Rows = append(st.Rows, params)
	}

	return st
}

func (p *Parser) parseDate(prof *Profile, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range prof.DateLayouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
