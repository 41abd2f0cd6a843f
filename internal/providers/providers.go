package providers

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// TextRequest asks a text model for a JSON reply constrained by Schema
type TextRequest struct {
	APIKey            string
	Model             string
	SystemInstruction string
	Prompt            string
	Schema            *jsonschema.Schema
	// SchemaName is used by backends that require a named schema
	SchemaName string
}

// ImageRequest asks an image model for Count images
type ImageRequest struct {
	APIKey      string
	Model       string
	Prompt      string
	Count       int
	AspectRatio string // e.g. "16:9"
	MIMEType    string // e.g. "image/jpeg"
}

// TextProvider returns the raw JSON text of a schema-constrained reply
type TextProvider interface {
	GenerateJSON(ctx context.Context, req TextRequest) (string, error)
}

// ImageProvider returns the generated images' bytes. An empty slice means
// the backend produced nothing.
type ImageProvider interface {
	GenerateImages(ctx context.Context, req ImageRequest) ([][]byte, error)
}
