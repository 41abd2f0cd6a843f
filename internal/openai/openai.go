package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lehigh-university-libraries/adwizard/internal/providers"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultImageModel = "gpt-image-1"

	// structured outputs need an object root, so array schemas are wrapped
	wrapperField = "items"
)

// OpenAI is a text and image provider for the OpenAI API
type OpenAI struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a new OpenAI provider
func New() *OpenAI {
	return &OpenAI{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{},
	}
}

// GenerateJSON requests a chat completion whose reply follows the request schema
func (o *OpenAI) GenerateJSON(ctx context.Context, req providers.TextRequest) (string, error) {
	if req.APIKey == "" {
		return "", fmt.Errorf("OpenAI API key not set")
	}

	schema, wrapped := wrapSchema(req.Schema)
	name := req.SchemaName
	if name == "" {
		name = "reply"
	}

	messages := []map[string]string{}
	if req.SystemInstruction != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": req.SystemInstruction,
		})
	}
	messages = append(messages, map[string]string{
		"role":    "user",
		"content": req.Prompt,
	})

	body := map[string]interface{}{
		"model":    req.Model,
		"messages": messages,
	}
	if schema != nil {
		body["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   name,
				"schema": schema,
				"strict": false,
			},
		}
	} else {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := o.post(ctx, req.APIKey, "/chat/completions", body, &response); err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if !wrapped {
		return content, nil
	}
	return unwrap(content)
}

// GenerateImages requests images as base64 JSON and decodes them
func (o *OpenAI) GenerateImages(ctx context.Context, req providers.ImageRequest) ([][]byte, error) {
	if req.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}

	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}

	body := map[string]interface{}{
		"model":         model,
		"prompt":        req.Prompt,
		"n":             max(req.Count, 1),
		"size":          sizeFor(req.AspectRatio),
		"output_format": formatFor(req.MIMEType),
	}

	var response struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := o.post(ctx, req.APIKey, "/images/generations", body, &response); err != nil {
		return nil, err
	}

	images := make([][]byte, 0, len(response.Data))
	for _, d := range response.Data {
		if d.B64JSON == "" {
			continue
		}
		img, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		images = append(images, img)
	}
	return images, nil
}

func (o *OpenAI) post(ctx context.Context, apiKey, path string, body any, out any) error {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(baseURL, "/")+path, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func wrapSchema(s *jsonschema.Schema) (*jsonschema.Schema, bool) {
	if s == nil || s.Type == "object" {
		return s, false
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties:           map[string]*jsonschema.Schema{wrapperField: s},
		Required:             []string{wrapperField},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}, true
}

func unwrap(content string) (string, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return "", fmt.Errorf("failed to parse wrapped reply: %w", err)
	}
	inner, ok := envelope[wrapperField]
	if !ok {
		return "", fmt.Errorf("wrapped reply has no %q field", wrapperField)
	}
	return string(inner), nil
}

func sizeFor(aspect string) string {
	switch aspect {
	case "16:9", "3:2", "4:3":
		return "1536x1024"
	case "9:16", "2:3", "3:4":
		return "1024x1536"
	case "1:1":
		return "1024x1024"
	default:
		return "auto"
	}
}

func formatFor(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpeg"
	}
}
