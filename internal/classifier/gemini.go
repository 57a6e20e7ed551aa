package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"parts-finder/internal/domain"
)

const (
	DefaultModel = "gemini-2.5-flash-image"

	defaultMimeType = "image/jpeg"
)

const prompt = `
أنت خبير في قطع غيار السيارات.
قم بتحليل هذه الصورة واستخراج المعلومات التالية بتنسيق JSON:
1. detectedName: اسم القطعة باللغة العربية.
2. description: وصف قصير للقطعة ووظيفتها وحالتها الظاهرة.
3. possiblePartNumbers: مصفوفة تحتوي على أي أرقام أو رموز تراها مطبوعة على القطعة.
4. confidence: رقم من 0 إلى 1 يمثل مدى ثقتك في التعرف على القطعة.

إذا لم تكن الصورة لقطعة سيارة، أرجع detectedName كـ "غير معروف".
`

// GeminiConfig configures the Gemini generateContent adapter.
// An empty BaseURL keeps the SDK's public endpoint.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GeminiClient calls Gemini through the genai SDK with a
// schema-constrained JSON response
type GeminiClient struct {
	client *genai.Client
	model  string
}

var resultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"detectedName":        {Type: genai.TypeString},
		"description":         {Type: genai.TypeString},
		"possiblePartNumbers": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"confidence":          {Type: genai.TypeNumber},
	},
}

// NewGeminiClient creates a new Gemini adapter. Without an API key no SDK
// client is built and every Analyze call fails with ErrMissingCredential.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, httpClient *http.Client) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	c := &GeminiClient{model: cfg.Model}
	if cfg.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.client = client

	return c, nil
}

// Analyze sends the image to Gemini and decodes the structured answer
func (c *GeminiClient) Analyze(ctx context.Context, image []byte, mimeType string) (*domain.AISearchResult, error) {
	const op = "gemini.Analyze"

	if c.client == nil {
		return nil, serviceError(op, ErrMissingCredential)
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema,
	})
	if err != nil {
		return nil, serviceError(op, fmt.Errorf("generate content: %w", err))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, serviceError(op, ErrEmptyResponse)
	}

	var result domain.AISearchResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, serviceError(op, fmt.Errorf("failed to parse payload: %w", err))
	}

	return normalize(&result), nil
}
