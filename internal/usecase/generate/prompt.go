package generate

import (
	"fmt"
	"strings"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

// buildPrompt assembles the generation prompt: dish request, category
// hints, serving and language instructions, the expected JSON shape and
// the retrieved context (empty when RAG degraded or found nothing).
func buildPrompt(dishName string, categories []string, language string, servingSize int, ragContext string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tạo công thức chi tiết cho: %s.", dishName)

	if len(categories) > 0 {
		fmt.Fprintf(&b, " Categories: %s.", strings.Join(categories, ", "))
	}
	if hints := domain.CategoryHints(categories); hints != "" {
		b.WriteString(" " + hints)
	}

	if servingSize > 0 {
		fmt.Fprintf(&b, " Tính cho %d người ăn.", servingSize)
	} else {
		b.WriteString(" Tính cho 2-4 người ăn (mặc định).")
	}

	if language == domain.LanguageEnglish {
		b.WriteString(" English.")
	} else {
		b.WriteString(" Tiếng Việt.")
	}

	b.WriteString("\nTrả về JSON với:\n" +
		"- dishName, description, prepTime, cookTime, servings (số người theo yêu cầu)\n" +
		"- ingredients: [{name, quantity (điều chỉnh theo số người)}]\n" +
		"- steps: [{stepNumber, description}]\n" +
		"Tối thiểu 3 bước, tối đa 6 bước.")

	if ragContext != "" {
		b.WriteString(ragContext)
	}

	return b.String()
}
