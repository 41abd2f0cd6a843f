package contract

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
)

// ExtractedInfo is what the model pulls out of landing-page content
type ExtractedInfo struct {
	ProductDescription string   `json:"productDescription"`
	TargetAudience     string   `json:"targetAudience"`
	USP                []string `json:"usp"`
}

func intPtr(n int) *int { return &n }

// noExtraKeys rejects properties an object schema does not declare
func noExtraKeys() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

// ExtractedInfoSchema constrains the extraction reply to exactly three fields
func ExtractedInfoSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"productDescription": {
				Type:        "string",
				Description: "Краткое, но емкое описание продукта или услуги, предлагаемых на странице.",
			},
			"targetAudience": {
				Type:        "string",
				Description: "Описание целевой аудитории, на которую нацелен продукт.",
			},
			"usp": {
				Type:        "array",
				Description: "Массив из 3-5 ключевых преимуществ или уникальных торговых предложений (УТП).",
				Items:       &jsonschema.Schema{Type: "string"},
			},
		},
		Required:             []string{"productDescription", "targetAudience", "usp"},
		AdditionalProperties: noExtraKeys(),
	}
}

// AdCreativeSchema describes one creative. Length ceilings are hints in the
// descriptions; only structure is validated.
func AdCreativeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"headline1": {
				Type:        "string",
				Description: fmt.Sprintf("Первый заголовок, максимум %d символов.", models.MaxHeadline1),
			},
			"headline2": {
				Type:        "string",
				Description: fmt.Sprintf("Второй заголовок, максимум %d символов.", models.MaxHeadline2),
			},
			"adText": {
				Type:        "string",
				Description: fmt.Sprintf("Текст объявления, максимум %d символ.", models.MaxAdText),
			},
			"sitelinks": {
				Type:        "array",
				Description: fmt.Sprintf("От %d до %d быстрых ссылок.", models.MinSitelinks, models.MaxSitelinks),
				MinItems:    intPtr(models.MinSitelinks),
				MaxItems:    intPtr(models.MaxSitelinks),
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"title": {
							Type:        "string",
							Description: fmt.Sprintf("Заголовок быстрой ссылки, максимум %d символов.", models.MaxSitelinkTitle),
						},
						"description": {
							Type:        "string",
							Description: fmt.Sprintf("Описание быстрой ссылки, максимум %d символов.", models.MaxSitelinkDesc),
						},
					},
					Required:             []string{"title", "description"},
					AdditionalProperties: noExtraKeys(),
				},
			},
			"clarifications": {
				Type:        "array",
				Description: fmt.Sprintf("От %d до %d уточнений.", models.MinClarifications, models.MaxClarifications),
				MinItems:    intPtr(models.MinClarifications),
				MaxItems:    intPtr(models.MaxClarifications),
				Items: &jsonschema.Schema{
					Type:        "string",
					Description: fmt.Sprintf("Текст уточнения, максимум %d символов.", models.MaxClarification),
				},
			},
			"displayLink": {
				Type:        "string",
				Description: fmt.Sprintf("Отображаемая ссылка, максимум %d символов. Должна быть релевантна сайту.", models.MaxDisplayLink),
			},
		},
		Required:             []string{"headline1", "headline2", "adText", "sitelinks", "clarifications", "displayLink"},
		AdditionalProperties: noExtraKeys(),
	}
}

// CreativeListSchema requires exactly n creatives
func CreativeListSchema(n int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "array",
		Items:    AdCreativeSchema(),
		MinItems: intPtr(n),
		MaxItems: intPtr(n),
	}
}

// decodeStrict parses reply, validates it against schema and only then
// decodes it into dst. Nothing is salvaged from a reply that fails either step.
func decodeStrict(reply string, schema *jsonschema.Schema, dst any) error {
	var instance any
	if err := json.Unmarshal([]byte(reply), &instance); err != nil {
		return fmt.Errorf("reply is not JSON: %w", err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve schema: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("reply does not match schema: %w", err)
	}

	if err := json.Unmarshal([]byte(reply), dst); err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}
	return nil
}
