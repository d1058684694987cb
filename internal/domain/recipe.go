package domain

import "fmt"

// Ingredient is a single recipe ingredient with a free-text quantity.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Step is a single numbered cooking step.
type Step struct {
	StepNumber  int    `json:"stepNumber"`
	Description string `json:"description"`
}

// Recipe is the structured output of recipe generation.
type Recipe struct {
	DishName    string       `json:"dishName"`
	Description string       `json:"description"`
	PrepTime    string       `json:"prepTime"`
	CookTime    string       `json:"cookTime"`
	Servings    string       `json:"servings"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
}

// Validate checks the mandatory fields of a generated recipe.
// A violation wraps ErrMalformedRecipe: the orchestrator treats it as a
// transient formatting glitch and retries.
func (r *Recipe) Validate() error {
	if r.DishName == "" {
		return fmt.Errorf("missing dishName: %w", ErrMalformedRecipe)
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("missing ingredients: %w", ErrMalformedRecipe)
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("missing steps: %w", ErrMalformedRecipe)
	}
	return nil
}
