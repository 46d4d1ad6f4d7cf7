package services_test

import (
	"errors"
	"testing"

	"github.com/AlexLuu1/Memento/services"
	"github.com/m-mizutani/gt"
)

func TestEncodeRecord(t *testing.T) {
	gt.Equal(t, services.EncodeRecord("2024-01-01", "Birthday party"), "2024-01-01|Birthday party")
	gt.Equal(t,
		services.EncodeCaptionedRecord("2024-01-01", "Birthday party", "cake and balloons"),
		"2024-01-01|Birthday party|cake and balloons")
}

func TestDecodeRecordRoundTrip(t *testing.T) {
	text := services.EncodeCaptionedRecord("2024-01-01", "Birthday party", "cake and balloons")

	rec, err := services.DecodeRecord(text)
	gt.NoError(t, err)
	gt.Equal(t, rec.Date, "2024-01-01")
	gt.Equal(t, rec.Description, "Birthday party")
	gt.Equal(t, rec.ImageSummary, "cake and balloons")
}

func TestDecodeRecordTrimsJoinWhitespace(t *testing.T) {
	rec, err := services.DecodeRecord("2024-01-01 | Picnic |\n\nA blanket on the grass\n")
	gt.NoError(t, err)
	gt.Equal(t, rec.Description, "Picnic")
	gt.Equal(t, rec.ImageSummary, "A blanket on the grass")
}

func TestDecodeRecordKeepsExtraSeparatorsInSummary(t *testing.T) {
	rec, err := services.DecodeRecord("2024-01-01|Trip|left | right")
	gt.NoError(t, err)
	gt.Equal(t, rec.ImageSummary, "left | right")
}

func TestDecodeRecordEmptySummary(t *testing.T) {
	rec, err := services.DecodeRecord(services.EncodeCaptionedRecord("2024-01-01", "Trip", ""))
	gt.NoError(t, err)
	gt.Equal(t, rec.ImageSummary, "")
}

func TestDecodeRecordTooFewFields(t *testing.T) {
	for _, text := range []string{"", "2024-01-01", services.EncodeRecord("2024-01-01", "Birthday party")} {
		t.Run(text, func(t *testing.T) {
			rec, err := services.DecodeRecord(text)
			gt.Error(t, err)
			gt.True(t, errors.Is(err, services.ErrDecode))
			gt.V(t, rec).Nil()
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"2024-01-01", "January 1, 2024"},
		{"2023-07-04T10:30:00Z", "July 4, 2023"},
		{"2023-07-04T10:30", "July 4, 2023"},
		{" 2022/12/25 ", "December 25, 2022"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := services.NormalizeDate(tc.raw)
			gt.NoError(t, err)
			gt.Equal(t, got, tc.want)
		})
	}
}

func TestNormalizeDateInvalid(t *testing.T) {
	for _, raw := range []string{"", "last summer", "2024-13-01"} {
		_, err := services.NormalizeDate(raw)
		gt.True(t, errors.Is(err, services.ErrDateFormat))
	}
}
