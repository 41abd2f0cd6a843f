// Package contract talks to the hosted LLM on behalf of the wizard.
//
// Every text reply must parse and validate against its JSON schema before
// anything is returned; there is no partial or fuzzy recovery. Images are
// requested separately from text so that an image outage never blocks a text
// edit and vice versa.
package contract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/lehigh-university-libraries/adwizard/internal/providers"
	"golang.org/x/sync/errgroup"
)

const (
	ImageAspectRatio = "16:9"
	ImageMIMEType    = "image/jpeg"
)

// CredentialSource yields the API key for the current session, or "" if none
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// Models maps the wizard's model tiers onto provider model names
type Models struct {
	Fast  string
	Pro   string
	Image string
}

// DefaultModels are the Gemini model names
func DefaultModels() Models {
	return Models{
		Fast:  string(models.ModelFast),
		Pro:   string(models.ModelPro),
		Image: "imagen-4.0-generate-001",
	}
}

func (m Models) text(tier models.AIModel) string {
	if tier == models.ModelPro {
		return m.Pro
	}
	return m.Fast
}

type Service struct {
	text       providers.TextProvider
	images     providers.ImageProvider
	creds      CredentialSource
	models     Models
	classifier Classifier
	markdown   *converter.Converter
}

type Option func(*Service)

func WithModels(m Models) Option { return func(s *Service) { s.models = m } }

// WithClassifier swaps the refinement routing strategy
func WithClassifier(c Classifier) Option { return func(s *Service) { s.classifier = c } }

func NewService(text providers.TextProvider, images providers.ImageProvider, creds CredentialSource, opts ...Option) *Service {
	s := &Service{
		text:       text,
		images:     images,
		creds:      creds,
		models:     DefaultModels(),
		classifier: DefaultClassifier(),
		markdown:   newMarkdownConverter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) apiKey(ctx context.Context) (string, error) {
	key, err := s.creds.Credential(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingCredential, err)
	}
	if key == "" {
		return "", ErrMissingCredential
	}
	return key, nil
}

// Extract pulls product description, audience and selling points out of
// free-form content. filename is only used to detect HTML uploads.
func (s *Service) Extract(ctx context.Context, content, filename string, tier models.AIModel) (ExtractedInfo, error) {
	key, err := s.apiKey(ctx)
	if err != nil {
		return ExtractedInfo{}, err
	}

	if strings.TrimSpace(content) == "" {
		return ExtractedInfo{}, fmt.Errorf("%w: content is empty", ErrExtraction)
	}

	normalized, err := s.normalizeContent(filename, content)
	if err != nil {
		return ExtractedInfo{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if normalized == "" {
		return ExtractedInfo{}, fmt.Errorf("%w: content has no text", ErrExtraction)
	}

	schema := ExtractedInfoSchema()
	reply, err := s.text.GenerateJSON(ctx, providers.TextRequest{
		APIKey:            key,
		Model:             s.models.text(tier),
		SystemInstruction: extractSystemInstruction,
		Prompt:            buildExtractPrompt(normalized),
		Schema:            schema,
		SchemaName:        "extracted_info",
	})
	if err != nil {
		slog.Error("Error extracting info from content", "err", err)
		return ExtractedInfo{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	var info ExtractedInfo
	if err := decodeStrict(reply, schema, &info); err != nil {
		slog.Error("Extraction reply rejected", "err", err)
		return ExtractedInfo{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	slog.Info("Extracted product info", "usp", len(info.USP))
	return info, nil
}

// ExtractURL exists so callers get a typed error for URL-only input; live
// fetching of landing pages is not implemented.
func (s *Service) ExtractURL(ctx context.Context, url string) (ExtractedInfo, error) {
	if _, err := s.apiKey(ctx); err != nil {
		return ExtractedInfo{}, err
	}
	return ExtractedInfo{}, fmt.Errorf("%w: %w: %s", ErrExtraction, ErrURLUnsupported, url)
}

// Generate produces exactly form.VariantCount creatives. Image ads get one
// image per creative; if any image fails the whole call fails.
func (s *Service) Generate(ctx context.Context, form models.FormSnapshot) ([]models.AdCreative, error) {
	key, err := s.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	n := models.ClampVariants(form.VariantCount)
	form.VariantCount = n

	schema := CreativeListSchema(n)
	reply, err := s.text.GenerateJSON(ctx, providers.TextRequest{
		APIKey:            key,
		Model:             s.models.text(form.AIModel),
		SystemInstruction: buildGenerateSystemInstruction(n),
		Prompt:            buildGeneratePrompt(form),
		Schema:            schema,
		SchemaName:        "ad_creatives",
	})
	if err != nil {
		slog.Error("Error generating ad creatives", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	var creatives []models.AdCreative
	if err := decodeStrict(reply, schema, &creatives); err != nil {
		slog.Error("Generation reply rejected", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	for i := range creatives {
		// images only ever come from the image endpoint
		creatives[i].ImageURL = ""
	}

	if form.Goal != models.GoalImageAd {
		slog.Info("Generated text creatives", "count", len(creatives))
		return creatives, nil
	}

	prompts := make([]string, len(creatives))
	for i, c := range creatives {
		prompts[i] = buildCreativeImagePrompt(c, form)
	}
	images, err := s.imagesFor(ctx, key, prompts)
	if err != nil {
		return nil, err
	}
	for i := range creatives {
		creatives[i].ImageURL = images[i]
	}

	slog.Info("Generated image creatives", "count", len(creatives))
	return creatives, nil
}

// Refine edits existing creatives. Image-change requests regenerate every
// image and leave text untouched; anything else edits text and keeps images.
func (s *Service) Refine(ctx context.Context, current []models.AdCreative, instruction string, form models.FormSnapshot) ([]models.AdCreative, error) {
	key, err := s.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, fmt.Errorf("%w: instruction is empty", ErrRefinement)
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("%w: nothing to refine", ErrRefinement)
	}

	intent := s.classifier.Classify(instruction)
	slog.Info("Refining creatives", "intent", intent, "count", len(current))

	if intent == ImageEdit {
		return s.refineImages(ctx, key, current, instruction, form)
	}
	return s.refineText(ctx, key, current, instruction, form)
}

func (s *Service) refineImages(ctx context.Context, key string, current []models.AdCreative, instruction string, form models.FormSnapshot) ([]models.AdCreative, error) {
	prompt := buildRegenerateImagePrompt(instruction, form)
	prompts := make([]string, len(current))
	for i := range prompts {
		prompts[i] = prompt
	}

	images, err := s.imagesFor(ctx, key, prompts)
	if err != nil {
		return nil, err
	}

	out := models.CloneCreatives(current)
	for i := range out {
		out[i].ImageURL = images[i]
	}
	return out, nil
}

func (s *Service) refineText(ctx context.Context, key string, current []models.AdCreative, instruction string, form models.FormSnapshot) ([]models.AdCreative, error) {
	stripped := models.CloneCreatives(current)
	for i := range stripped {
		stripped[i].ImageURL = ""
	}
	currentJSON, err := json.MarshalIndent(stripped, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefinement, err)
	}

	schema := CreativeListSchema(len(current))
	reply, err := s.text.GenerateJSON(ctx, providers.TextRequest{
		APIKey:            key,
		Model:             s.models.text(form.AIModel),
		SystemInstruction: refineSystemInstruction,
		Prompt:            buildRefinePrompt(instruction, string(currentJSON)),
		Schema:            schema,
		SchemaName:        "ad_creatives",
	})
	if err != nil {
		slog.Error("Error refining ad creatives", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrRefinement, err)
	}

	var updated []models.AdCreative
	if err := decodeStrict(reply, schema, &updated); err != nil {
		slog.Error("Refinement reply rejected", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrRefinement, err)
	}
	if len(updated) != len(current) {
		return nil, fmt.Errorf("%w: expected %d creatives, got %d", ErrRefinement, len(current), len(updated))
	}

	for i := range updated {
		updated[i].ImageURL = current[i].ImageURL
	}
	return updated, nil
}

// Image generates a single 16:9 JPEG and returns its bytes
func (s *Service) Image(ctx context.Context, prompt string) ([]byte, error) {
	key, err := s.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	return s.image(ctx, key, prompt)
}

func (s *Service) image(ctx context.Context, key, prompt string) ([]byte, error) {
	images, err := s.images.GenerateImages(ctx, providers.ImageRequest{
		APIKey:      key,
		Model:       s.models.Image,
		Prompt:      imagePromptPrefix + prompt,
		Count:       1,
		AspectRatio: ImageAspectRatio,
		MIMEType:    ImageMIMEType,
	})
	if err != nil {
		slog.Error("Error generating image", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrImageGeneration, err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no image was generated", ErrImageGeneration)
	}
	return images[0], nil
}

// imagesFor runs one image request per prompt concurrently and returns the
// base64 results in prompt order. The first failure fails the batch.
func (s *Service) imagesFor(ctx context.Context, key string, prompts []string) ([]string, error) {
	out := make([]string, len(prompts))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range prompts {
		g.Go(func() error {
			img, err := s.image(gctx, key, p)
			if err != nil {
				return fmt.Errorf("creative %d: %w", i+1, err)
			}
			out[i] = base64.StdEncoding.EncodeToString(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
