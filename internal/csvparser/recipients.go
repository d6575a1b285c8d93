// Package csvparser reads address lists uploaded as CSV.
package csvparser

import (
	"encoding/csv"
	"errors"
	"io"
	"net/mail"
	"strings"
)

const DefaultMaxRows = 10000

var (
	ErrNoEmailColumn = errors.New("csv must contain an Email column")
	ErrNoRows        = errors.New("csv must contain at least one valid address")
)

// InvalidRow is a data row whose Email cell is not a usable address.
type InvalidRow struct {
	Line  int    `json:"line"`
	Value string `json:"value"`
}

// ParseSuppressionRows reads a CSV with a header row containing an "Email"
// column (case-insensitive) and returns the lower-cased, de-duplicated
// addresses in file order. Other columns are ignored. Blank cells are
// dropped silently; malformed addresses are reported in invalid.
//
// maxRows limits how many data rows are read (excluding header).
func ParseSuppressionRows(r io.Reader, maxRows int) (addrs []string, invalid []InvalidRow, err error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrNoEmailColumn
	}
	if err != nil {
		return nil, nil, err
	}

	emailIdx := -1
	for i, h := range headers {
		// Excel exports often prefix the first header with a BOM.
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if strings.EqualFold(h, "email") {
			emailIdx = i
			break
		}
	}
	if emailIdx == -1 {
		return nil, nil, ErrNoEmailColumn
	}

	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	seen := make(map[string]struct{})
	for rows := 0; rows < maxRows; rows++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if emailIdx >= len(record) {
			continue
		}

		raw := strings.TrimSpace(record[emailIdx])
		if raw == "" {
			continue
		}

		parsed, perr := mail.ParseAddress(raw)
		if perr != nil || parsed.Address != raw {
			line, _ := reader.FieldPos(emailIdx)
			invalid = append(invalid, InvalidRow{Line: line, Value: raw})
			continue
		}

		addr := strings.ToLower(parsed.Address)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}

	if len(addrs) == 0 {
		return nil, invalid, ErrNoRows
	}
	return addrs, invalid, nil
}
