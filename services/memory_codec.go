package services

import (
	"strings"
	"time"

	"github.com/AlexLuu1/Memento/models"
	"github.com/m-mizutani/goerr/v2"
)

const (
	fieldSeparator = "|"
	recordFields   = 3

	displayDateLayout = "January 2, 2006"
)

// Layouts accepted for the date field, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// EncodeRecord returns the two-field form stored before a caption exists.
func EncodeRecord(date, description string) string {
	return date + fieldSeparator + description
}

// EncodeCaptionedRecord returns the complete three-field form.
func EncodeCaptionedRecord(date, description, imageSummary string) string {
	return EncodeRecord(date, description) + fieldSeparator + imageSummary
}

// DecodeRecord splits a stored document into its three fields. Anything after
// the second separator belongs to the summary. Documents with fewer than three
// fields fail with ErrDecode.
func DecodeRecord(text string) (*models.MemoryRecord, error) {
	parts := strings.SplitN(text, fieldSeparator, recordFields)
	if len(parts) < recordFields {
		return nil, goerr.Wrap(ErrDecode, "record has too few fields",
			goerr.V("fields", len(parts)),
			goerr.V("text", text))
	}

	return &models.MemoryRecord{
		Date:         strings.TrimSpace(parts[0]),
		Description:  strings.TrimSpace(parts[1]),
		ImageSummary: strings.TrimSpace(parts[2]),
	}, nil
}

// splitHead returns the date and description of a document in either form.
func splitHead(text string) (date, description string, ok bool) {
	parts := strings.SplitN(text, fieldSeparator, recordFields)
	if len(parts) < 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// NormalizeDate renders an ISO-like date as e.g. "January 2, 2006".
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(displayDateLayout), nil
		}
	}
	return "", goerr.Wrap(ErrDateFormat, "date matches no known layout", goerr.V("date", raw))
}

// imageFilename is the sidecar photo name for a record id.
func imageFilename(id string) string {
	return id + ".jpg"
}
