// Package imagen generates ad images with Google's Imagen models through the
// Gemini API.
package imagen

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/adwizard/internal/providers"
	"google.golang.org/genai"
)

// DefaultModel is used when a request names no model
const DefaultModel = "imagen-4.0-generate-001"

// Imagen is an image provider backed by google.golang.org/genai.
// BaseURL overrides the API endpoint when set.
type Imagen struct {
	BaseURL string
}

func New() *Imagen {
	return &Imagen{}
}

// GenerateImages returns the bytes of every image the model produced
func (i *Imagen) GenerateImages(ctx context.Context, req providers.ImageRequest) ([][]byte, error) {
	if req.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      req.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: i.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	resp, err := client.Models.GenerateImages(ctx, model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(max(req.Count, 1)),
		AspectRatio:    req.AspectRatio,
		OutputMIMEType: req.MIMEType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate images: %w", err)
	}

	images := make([][]byte, 0, len(resp.GeneratedImages))
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, img.Image.ImageBytes)
	}

	return images, nil
}
