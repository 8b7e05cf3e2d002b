// Package csvmap turns roster exports from other gym systems into rows the
// reconciliation engine understands.
package csvmap

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/smallbiznis/frontdesk/internal/roster/domain"
)

var (
	ErrEmptyFile = errors.New("empty_file")
	ErrNoHeader  = errors.New("missing_header")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	externalIDColumns = []string{"Id", "Member ID", "ClientId", "Client ID"}
	nameColumns       = []string{"Name", "Client Name"}
	emailColumns      = []string{"Email", "Email Address", "E-mail"}
	phoneColumns      = []string{"Phone", "Mobile Phone", "Home Phone"}
	tierColumns       = []string{"Membership Tier", "Contract Name", "Client Type"}
	statusColumns     = []string{"Status", "Active", "Client Status"}
)

// Parse reads a header-led CSV and maps every row with a usable name.
func Parse(r io.Reader) ([]domain.Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyFile
	}
	text := strings.ToValidUTF8(string(raw), "")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []domain.Row{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				fields[col] = record[i]
			}
		}
		if row, ok := MapRow(fields); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// MapRow maps one record keyed by column name. Rows without a name are dropped.
func MapRow(fields map[string]string) (domain.Row, bool) {
	name := first(fields, nameColumns...)
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(fields["First Name"]) + " " + strings.TrimSpace(fields["Last Name"]))
	}
	if name == "" {
		return domain.Row{}, false
	}

	status := domain.RowStatusInactive
	rawStatus := first(fields, statusColumns...)
	if rawStatus == "" {
		rawStatus = "active"
	}
	switch strings.ToLower(rawStatus) {
	case "active", "true", "1", "yes":
		status = domain.RowStatusActive
	}

	return domain.Row{
		ExternalID: first(fields, externalIDColumns...),
		Name:       name,
		Email:      first(fields, emailColumns...),
		Phone:      first(fields, phoneColumns...),
		Tier:       first(fields, tierColumns...),
		Status:     status,
	}, true
}

// first returns the first non-blank value among the aliases, trimmed.
func first(fields map[string]string, columns ...string) string {
	for _, col := range columns {
		if v := strings.TrimSpace(fields[col]); v != "" {
			return v
		}
	}
	return ""
}
