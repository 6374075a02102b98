package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const modelName = "gemini-2.5-flash"

// systemInstruction fixes the model's role and the required output schema.
// Set once at client construction, not per request.
const systemInstruction = `You are ChefAI. Analyze the image provided to identify ingredients and suggest 2 distinct recipes.

You must return the response in this specific JSON format:
[
    {
        "title": "Recipe Name",
        "description": "Short description",
        "ingredients": ["List", "of", "ingredients"],
        "instructions": ["Step 1", "Step 2"],
        "time_minutes": 30,
        "skill_level": "Easy",
        "image_url": "temporary_placeholder_will_be_overwritten"
    }
]
skill_level must be one of "Easy", "Medium" or "Hard". time_minutes must be a non-negative integer.`

// Client is a client for the Gemini API. The underlying model is configured
// once with the ChefAI role, forced JSON output and relaxed harassment
// filtering so food-adjacent commentary is not blocked.
type Client struct {
	model *genai.GenerativeModel
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(1)
	model.SetTopP(0.95)
	model.SetTopK(64)
	model.SetMaxOutputTokens(8192)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
	}

	return &Client{model: model}, nil
}

// buildPrompt embeds the requested output language and unit system into the
// per-request instruction. Bulgarian is named in Bulgarian; the model follows
// the localized language name more reliably.
func buildPrompt(language, units string) string {
	promptLanguage := language
	if language == "Bulgarian" {
		promptLanguage = "Български"
	}

	return fmt.Sprintf(`Analyze this image and identify the ingredients.
Based on these ingredients, suggest 2 distinct recipes.

**CRITICAL INSTRUCTION: Generate the entire output (Title, Description, Ingredients, and Instructions) entirely in %s.**

SETTINGS:
- Units: Use the %s system for all measurements (e.g. if Metric use grams/Celsius, if Imperial use cups/pounds/Fahrenheit).

Return the response in the specific JSON format defined in your system instructions.`, promptLanguage, units)
}

// Generate sends the image and generation preferences to the model and
// returns its raw text. Parsing and validation are the caller's job.
func (c *Client) Generate(ctx context.Context, imageData []byte, format, language, units string) (string, error) {
	prompt := []genai.Part{
		genai.ImageData(format, imageData),
		genai.Text(buildPrompt(language, units)),
	}

	resp, err := c.model.GenerateContent(ctx, prompt...)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response format from gemini")
	}
	return string(text), nil
}
