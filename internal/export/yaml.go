// Package export writes generated creatives out of the session store:
// YAML documents for review, image files for upload and parquet for
// analysis.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"gopkg.in/yaml.v3"
)

// Document is one history entry as written to YAML. Image bytes are left out.
type Document struct {
	ID        string              `yaml:"id"`
	Generated string              `yaml:"generated"`
	Form      models.FormSnapshot `yaml:"form"`
	Creatives []Creative          `yaml:"creatives"`
}

// Creative adds the advisory length overages to a creative's text
type Creative struct {
	models.AdCreative `yaml:",inline"`
	HasImage          bool             `yaml:"hasimage"`
	Overages          []models.Overage `yaml:"overages,omitempty"`
}

func newDocument(entry models.HistoryEntry) Document {
	doc := Document{
		ID:        entry.ID,
		Generated: time.UnixMilli(entry.Timestamp).UTC().Format(time.RFC3339),
		Form:      entry.FormData,
		Creatives: make([]Creative, 0, len(entry.Creatives)),
	}
	for _, c := range entry.Creatives {
		doc.Creatives = append(doc.Creatives, Creative{
			AdCreative: c,
			HasImage:   c.ImageURL != "",
			Overages:   c.Overages(),
		})
	}
	return doc
}

// WriteYAML writes a single history entry
func WriteYAML(w io.Writer, entry models.HistoryEntry) error {
	return encode(w, newDocument(entry))
}

// WriteHistoryYAML writes every entry, newest first, as one YAML list
func WriteHistoryYAML(w io.Writer, history []models.HistoryEntry) error {
	docs := make([]Document, 0, len(history))
	for _, e := range history {
		docs = append(docs, newDocument(e))
	}
	return encode(w, docs)
}

func encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush YAML: %w", err)
	}
	return nil
}

// ReadForm decodes a wizard form from YAML. Fields left out keep their
// defaults.
func ReadForm(r io.Reader) (models.FormSnapshot, error) {
	form := models.DefaultForm()
	if err := yaml.NewDecoder(r).Decode(&form); err != nil {
		return models.FormSnapshot{}, fmt.Errorf("failed to parse form YAML: %w", err)
	}
	if len(form.USP) == 0 {
		form.USP = []string{""}
	}
	form.VariantCount = models.ClampVariants(form.VariantCount)
	return form, nil
}
