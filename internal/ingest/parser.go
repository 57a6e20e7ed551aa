package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"parts-finder/internal/domain"

	"github.com/google/uuid"
)

const (
	// FallbackPartNumber replaces a blank part number column
	FallbackPartNumber = "N/A"
	// FallbackName replaces a blank name column ("unknown part")
	FallbackName = "قطعة غير معروفة"

	minColumns = 3
)

// Column positions of the inventory CSV layout
const (
	colPartNumber = iota
	colName
	colOrigin
	colPrice
	colQuantity
	colCustomerRef
	colDescription
)

var (
	floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
)

// RowWarning describes a data row that was dropped without failing the batch.
// Row counts non-blank data lines, starting at 1 after the header.
type RowWarning struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result is the outcome of one ingestion
type Result struct {
	Items    []domain.InventoryItem `json:"items"`
	Warnings []RowWarning           `json:"warnings,omitempty"`
}

// IDFunc generates the opaque identifier of a freshly ingested record
type IDFunc func() string

// Parser converts raw delimited text into inventory records
type Parser struct {
	newID IDFunc
}

// NewParser creates a parser that assigns UUID identifiers
func NewParser() *Parser {
	return &Parser{newID: uuid.NewString}
}

// NewParserWithIDs creates a parser with a custom identifier generator
func NewParserWithIDs(newID IDFunc) *Parser {
	return &Parser{newID: newID}
}

// Parse converts CSV text into inventory records.
//
// The first line is always a header and is discarded. Fields are split on the
// literal comma: quoted fields are not supported. Blank lines are ignored and
// lines with fewer than three columns are skipped with a warning.
func (p *Parser) Parse(text string) Result {
	lines := strings.Split(text, "\n")
	result := Result{Items: []domain.InventoryItem{}}

	row := 0
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		row++

		cols := strings.Split(line, ",")
		if len(cols) < minColumns {
			result.Warnings = append(result.Warnings, RowWarning{
				Row:    row,
				Reason: fmt.Sprintf("expected at least %d columns, got %d", minColumns, len(cols)),
			})
			continue
		}

		result.Items = append(result.Items, p.record(cols))
	}

	return result
}

// ParseReader reads the whole stream before parsing; partial reads are never parsed
func (p *Parser) ParseReader(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, &ParseError{Err: err}
	}

	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !utf8.Valid(data) {
		return Result{}, &ParseError{Err: fmt.Errorf("input is not valid UTF-8")}
	}

	return p.Parse(string(data)), nil
}

func (p *Parser) record(cols []string) domain.InventoryItem {
	return domain.InventoryItem{
		ID:          p.newID(),
		PartNumber:  textOr(column(cols, colPartNumber), FallbackPartNumber),
		Name:        textOr(column(cols, colName), FallbackName),
		Origin:      domain.ClassifyOrigin(column(cols, colOrigin)),
		Price:       parseFloatPrefix(column(cols, colPrice)),
		Quantity:    parseIntPrefix(column(cols, colQuantity)),
		CustomerRef: strings.TrimSpace(column(cols, colCustomerRef)),
		Description: strings.TrimSpace(column(cols, colDescription)),
	}
}

// CheckFormat rejects uploads that are neither CSV typed nor CSV named
func CheckFormat(filename, contentType string) error {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if mediaType == "text/csv" || strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil
	}
	return &FormatError{Filename: filename, ContentType: contentType}
}

func column(cols []string, idx int) string {
	if idx >= len(cols) {
		return ""
	}
	return cols[idx]
}

func textOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

// parseFloatPrefix reads the leading decimal number of s, 0 when there is none
func parseFloatPrefix(s string) float64 {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseIntPrefix reads the leading integer of s, 0 when there is none
func parseIntPrefix(s string) int {
	m := intPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return v
}
