package services

import (
	"fmt"
	"strings"

	"github.com/AlexLuu1/Memento/models"
)

// Grounding is the formatted block of retrieved memories plus the image
// filenames it mentions.
type Grounding struct {
	Block     string
	Filenames []string
	Skipped   []SkippedRecord
}

// SkippedRecord is a retrieved document left out of the grounding block.
type SkippedRecord struct {
	ID  string
	Err error
}

// HasFilename reports whether name was offered to the model.
func (g Grounding) HasFilename(name string) bool {
	for _, f := range g.Filenames {
		if f == name {
			return true
		}
	}
	return false
}

// BuildGrounding formats retrieved documents in retrieval order. Documents
// that fail to decode or carry an unparseable date are skipped.
func BuildGrounding(docs []models.StoredDocument) Grounding {
	var (
		g  Grounding
		sb strings.Builder
		n  int
	)

	for _, doc := range docs {
		rec, err := DecodeRecord(doc.Text)
		if err != nil {
			g.Skipped = append(g.Skipped, SkippedRecord{ID: doc.ID, Err: err})
			continue
		}
		date, err := NormalizeDate(rec.Date)
		if err != nil {
			g.Skipped = append(g.Skipped, SkippedRecord{ID: doc.ID, Err: err})
			continue
		}

		name := doc.Filename()
		if name == "" {
			name = doc.ID
		}
		filename := imageFilename(name)

		n++
		fmt.Fprintf(&sb, "<memory number=\"%d\">\n", n)
		fmt.Fprintf(&sb, "<date>%s</date>\n", date)
		fmt.Fprintf(&sb, "<description>%s</description>\n", rec.Description)
		fmt.Fprintf(&sb, "<image_filename>%s</image_filename>\n", filename)
		fmt.Fprintf(&sb, "<image_summary>%s</image_summary>\n", rec.ImageSummary)
		sb.WriteString("</memory>\n")

		g.Filenames = append(g.Filenames, filename)
	}

	g.Block = sb.String()
	return g
}
