package recipe

import (
	"strings"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

const (
	maxDescriptionLength = 150
	maxIngredientNames   = 8
)

// TextPolicy holds the weighting knobs for embedding-input text.
// Repeating the dish name and categories biases the embedding toward
// those terms, since repeated tokens dominate the aggregated vector.
type TextPolicy struct {
	MaxTextLength  int
	DishNameWeight int
	CategoryWeight int
}

// ingredientList compacts a recipe's ingredients to the joined names of
// at most the first eight, dropping quantities.
func ingredientList(ingredients []domain.Ingredient) string {
	n := len(ingredients)
	if n > maxIngredientNames {
		n = maxIngredientNames
	}
	names := make([]string, 0, n)
	for _, ing := range ingredients[:n] {
		names = append(names, ing.Name)
	}
	return strings.Join(names, ", ")
}

// buildText constructs the weighted embedding-input text:
// dish name repeated DishNameWeight times, categories repeated
// CategoryWeight times, description truncated to 150 runes, then the
// ingredient list, dot-joined and truncated to MaxTextLength runes.
// Truncation may cut mid-field; that is accepted lossy behavior.
// Deterministic for fixed policy and inputs.
func (p TextPolicy) buildText(dishName string, categories []string, description, ingredients string) string {
	repeatedName := repeatJoin(dishName, p.DishNameWeight)
	repeatedCats := repeatJoin(strings.Join(categories, ", "), p.CategoryWeight)

	text := repeatedName + ". " + repeatedCats + ". " +
		truncate(description, maxDescriptionLength) + ". " + ingredients

	return truncate(text, p.MaxTextLength)
}

func repeatJoin(s string, n int) string {
	if s == "" || n <= 0 {
		return s
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s
	}
	return strings.Join(parts, " ")
}

// truncate cuts s to at most n runes. Rune-based so Vietnamese text is
// never split inside a multibyte sequence.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
