package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Row is one creative flattened together with the form that produced it
type Row struct {
	EntryID        string `parquet:"entry_id"`
	Timestamp      int64  `parquet:"timestamp"`
	Position       int32  `parquet:"position"`
	Goal           string `parquet:"goal"`
	Style          string `parquet:"style"`
	Model          string `parquet:"model"`
	VariantCount   int32  `parquet:"variant_count"`
	Product        string `parquet:"product"`
	Audience       string `parquet:"audience"`
	USP            string `parquet:"usp"`
	Headline1      string `parquet:"headline1"`
	Headline2      string `parquet:"headline2"`
	AdText         string `parquet:"ad_text"`
	DisplayLink    string `parquet:"display_link"`
	Sitelinks      string `parquet:"sitelinks"`
	Clarifications string `parquet:"clarifications"`
	AdTextLen      int32  `parquet:"ad_text_len"`
	Overages       int32  `parquet:"overages"`
	HasImage       bool   `parquet:"has_image"`
}

// Rows flattens history into one row per creative
func Rows(history []models.HistoryEntry) []Row {
	var rows []Row
	for _, e := range history {
		f := e.FormData
		for i, c := range e.Creatives {
			titles := make([]string, 0, len(c.Sitelinks))
			for _, s := range c.Sitelinks {
				titles = append(titles, s.Title)
			}
			rows = append(rows, Row{
				EntryID:        e.ID,
				Timestamp:      e.Timestamp,
				Position:       int32(i + 1),
				Goal:           string(f.Goal),
				Style:          string(f.CreativeStyle),
				Model:          string(f.AIModel),
				VariantCount:   int32(f.VariantCount),
				Product:        f.ProductDescription,
				Audience:       f.TargetAudience,
				USP:            strings.Join(f.FilledUSP(), "; "),
				Headline1:      c.Headline1,
				Headline2:      c.Headline2,
				AdText:         c.AdText,
				DisplayLink:    c.DisplayLink,
				Sitelinks:      strings.Join(titles, "; "),
				Clarifications: strings.Join(c.Clarifications, "; "),
				AdTextLen:      int32(utf8.RuneCountInString(c.AdText)),
				Overages:       int32(len(c.Overages())),
				HasImage:       c.ImageURL != "",
			})
		}
	}
	return rows
}

// WriteParquet writes the flattened history to path
func WriteParquet(path string, history []models.HistoryEntry) (int, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	rows := Rows(history)
	if err := parquet.WriteFile(path, rows); err != nil {
		return 0, fmt.Errorf("failed to write parquet: %w", err)
	}
	return len(rows), nil
}
