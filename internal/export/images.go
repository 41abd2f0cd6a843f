package export

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
)

// ImageName is the file name used for the creative at 1-based position index
func ImageName(index int, c models.AdCreative) string {
	name := slug.Make(c.Headline1)
	if name == "" {
		name = "creative"
	}
	return fmt.Sprintf("%d-%s.jpg", index, name)
}

// WriteImages decodes each creative's image into dir and returns the paths
// written. Creatives without an image are skipped.
func WriteImages(dir string, creatives []models.AdCreative) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	var paths []string
	for i, c := range creatives {
		if c.ImageURL == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(c.ImageURL)
		if err != nil {
			return paths, fmt.Errorf("failed to decode image %d: %w", i+1, err)
		}
		path := filepath.Join(dir, ImageName(i+1, c))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write image %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteHistoryImages writes the images of every entry into its own
// subdirectory of dir, named after the entry, so equal headlines in
// different entries never collide.
func WriteHistoryImages(dir string, history []models.HistoryEntry) ([]string, error) {
	var paths []string
	for i, e := range history {
		name := slug.Make(e.ID)
		if name == "" {
			name = fmt.Sprintf("entry-%d", i+1)
		}
		written, err := WriteImages(filepath.Join(dir, name), e.Creatives)
		paths = append(paths, written...)
		if err != nil {
			return paths, fmt.Errorf("entry %s: %w", e.ID, err)
		}
	}
	return paths, nil
}
