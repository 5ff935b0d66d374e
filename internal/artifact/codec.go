package artifact

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"campaignlottery/internal/models"
)

// Format is the encoding of applicant list artifacts.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Well-known artifact names.
const (
	ExportName  = "applicants"
	WinnersName = "winners"
	LosersName  = "losers"
	SummaryFile = "summary.json"
)

// utf8BOM keeps spreadsheet tools from misreading non-ASCII names.
const utf8BOM = "\xef\xbb\xbf"

var csvHeader = []string{"id", "campaignId", "displayName", "contactInfo", "dedupeToken", "appliedAt", "status"}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported artifact format %q (want json or csv)", s)
}

// FileName returns base with the format's extension.
func (f Format) FileName(base string) string {
	return base + "." + string(f)
}

// Encode serializes applicants in format f.
func (f Format) Encode(applicants []models.Applicant) ([]byte, error) {
	if applicants == nil {
		applicants = []models.Applicant{}
	}
	switch f {
	case FormatCSV:
		return encodeCSV(applicants)
	default:
		data, err := json.MarshalIndent(applicants, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode applicants: %w", err)
		}
		return append(data, '\n'), nil
	}
}

// Decode parses applicants encoded in format f.
func (f Format) Decode(data []byte) ([]models.Applicant, error) {
	switch f {
	case FormatCSV:
		return decodeCSV(data)
	default:
		var applicants []models.Applicant
		if err := json.Unmarshal(data, &applicants); err != nil {
			return nil, fmt.Errorf("decode applicants: %w", err)
		}
		return applicants, nil
	}
}

func encodeCSV(applicants []models.Applicant) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range applicants {
		row := []string{
			a.ID,
			a.CampaignID,
			a.DisplayName,
			a.ContactInfo,
			a.DedupeToken,
			a.AppliedAt.UTC().Format(time.RFC3339Nano),
			string(a.Status),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", a.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeCSV(data []byte) ([]models.Applicant, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte(utf8BOM))))
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("decode applicants: empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected csv column %d: %q (want %q)", i+1, header[i], name)
		}
	}

	applicants := []models.Applicant{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		appliedAt, err := time.Parse(time.RFC3339Nano, record[5])
		if err != nil {
			return nil, fmt.Errorf("parse appliedAt of %s: %w", record[0], err)
		}
		applicants = append(applicants, models.Applicant{
			ID:          record[0],
			CampaignID:  record[1],
			DisplayName: record[2],
			ContactInfo: record[3],
			DedupeToken: record[4],
			AppliedAt:   appliedAt,
			Status:      models.Status(record[6]),
		})
	}
	return applicants, nil
}
