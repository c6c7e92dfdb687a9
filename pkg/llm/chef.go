package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pantryscope/pantryscope/pkg/config"
	"github.com/pantryscope/pantryscope/pkg/domain"
)

// Chef generates recipes through an OpenAI-compatible LLM
type Chef struct {
	client    *openai.Client
	config    config.LLMConfig
	systemMsg string
}

// NewChef creates a chef from the LLM configuration
func NewChef(cfg config.LLMConfig) *Chef {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	// use custom system prompt if provided, otherwise use default
	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	return &Chef{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
	}
}

// default system prompt for recipe generation
const defaultSystemPrompt = `You are a professional chef. You create unique recipes from the ingredients the user has on hand.

Each recipe must be an object with these keys:
- "title" (string)
- "ingredients" (list of strings, with quantities)
- "instructions" (list of step-by-step instructions)
- "missing_ingredients" (list of strings, additional ingredients not in the user's list; empty list if none)

Hard rules:
- NEVER use an ingredient the user dislikes or is allergic to.
- Always honor the stated dietary restrictions; use the provided substitutions for incompatible ingredients.
- Prefer the user's liked ingredients and favorite cuisines when reasonable.
- Scale quantities to the requested number of people.

Only output valid JSON. Do not include any extra text.`

// Enabled reports whether recipe generation is configured
func (c *Chef) Enabled() bool {
	return c.config.Model != ""
}

// GenerateRequest contains all parameters for recipe generation
type GenerateRequest struct {
	NumPeople     int
	Ingredients   []string
	Profile       *domain.UserProfile // assembled preferences, may be nil
	Substitutions map[string][]string // ingredient -> dietary-appropriate substitutes
	CatalogHints  []string            // titles of matching catalog recipes, used as inspiration
	Notes         string              // free-form context from the user's message
}

// GenerateRecipes asks the LLM for recipes matching the request. The
// response must be a JSON array of recipe objects; malformed JSON is
// retried up to 3 times before giving up.
func (c *Chef) GenerateRecipes(ctx context.Context, req GenerateRequest) ([]domain.GeneratedRecipe, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("recipe generation is not configured")
	}
	if len(req.Ingredients) == 0 {
		return nil, fmt.Errorf("no ingredients provided")
	}

	prompt := c.buildPrompt(req)

	// retry up to 3 times if we get invalid JSON
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		chatReq := openai.ChatCompletionRequest{
			Model:       c.config.Model,
			Temperature: float32(c.config.Temperature),
			MaxTokens:   c.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: c.systemMsg,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		}

		// add JSON response format if enabled
		if c.config.Recipes.UseJSONMode {
			chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return nil, fmt.Errorf("llm request failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no response from llm")
		}

		recipes, err := c.parseResponse(resp.Choices[0].Message.Content)
		if err == nil {
			return recipes, nil
		}
		lastErr = err

		// retry only JSON shape problems, anything else is final
		if strings.Contains(err.Error(), "failed to parse json") || strings.Contains(err.Error(), "no json array found") {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed after 3 attempts: %w", lastErr)
}

// buildPrompt creates the user prompt for the LLM
func (c *Chef) buildPrompt(req GenerateRequest) string {
	var sb strings.Builder

	count := c.config.Recipes.Count
	fmt.Fprintf(&sb, "Create %d unique recipes for %d people using these ingredients: %s.\n\n",
		count, req.NumPeople, strings.Join(req.Ingredients, ", "))

	if p := req.Profile; p != nil {
		if len(p.Dietary) > 0 {
			fmt.Fprintf(&sb, "Dietary restrictions (must be honored): %s\n", strings.Join(p.Dietary, ", "))
		}
		if len(p.Dislikes) > 0 {
			fmt.Fprintf(&sb, "Never use these ingredients: %s\n", strings.Join(p.Dislikes, ", "))
		}
		if len(p.Likes) > 0 {
			fmt.Fprintf(&sb, "Favorite ingredients: %s\n", strings.Join(p.Likes, ", "))
		}
		if len(p.Cuisines) > 0 {
			fmt.Fprintf(&sb, "Favorite cuisines: %s\n", strings.Join(p.Cuisines, ", "))
		}
		sb.WriteString("\n")
	}

	if len(req.Substitutions) > 0 {
		sb.WriteString("Dietary substitutions to apply:\n")
		for ingredient, subs := range req.Substitutions {
			fmt.Fprintf(&sb, "- instead of %s use: %s\n", ingredient, strings.Join(subs, " or "))
		}
		sb.WriteString("\n")
	}

	if len(req.CatalogHints) > 0 {
		sb.WriteString("Recipe ideas from the catalog for inspiration:\n")
		for _, hint := range req.CatalogHints {
			fmt.Fprintf(&sb, "- %s\n", hint)
		}
		sb.WriteString("\n")
	}

	if req.Notes != "" {
		fmt.Fprintf(&sb, "Additional context from the user: %s\n\n", req.Notes)
	}

	if c.config.Recipes.UseJSONMode {
		sb.WriteString("Respond with a JSON object containing a 'recipes' array of recipe objects.")
	} else {
		sb.WriteString("Respond with a JSON array of recipe objects.")
	}
	return sb.String()
}

// parseResponse parses the LLM response into recipes
func (c *Chef) parseResponse(content string) ([]domain.GeneratedRecipe, error) {
	var recipes []domain.GeneratedRecipe

	if c.config.Recipes.UseJSONMode {
		// parse as JSON object with recipes array
		var resp struct {
			Recipes []domain.GeneratedRecipe `json:"recipes"`
		}
		if err := json.Unmarshal([]byte(content), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse json object response: %w", err)
		}
		recipes = resp.Recipes
	} else {
		// parse as JSON array, tolerating prose around it
		start := strings.Index(content, "[")
		end := strings.LastIndex(content, "]")
		if start == -1 || end == -1 || start >= end {
			return nil, fmt.Errorf("no json array found in response")
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &recipes); err != nil {
			return nil, fmt.Errorf("failed to parse json array response: %w", err)
		}
	}

	// drop entries without the essentials
	valid := make([]domain.GeneratedRecipe, 0, len(recipes))
	for _, recipe := range recipes {
		if recipe.Title == "" || len(recipe.Ingredients) == 0 {
			continue
		}
		if recipe.MissingIngredients == nil {
			recipe.MissingIngredients = []string{}
		}
		valid = append(valid, recipe)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no usable recipes in response")
	}
	return valid, nil
}
