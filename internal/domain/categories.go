package domain

import (
	"fmt"
	"strings"
)

// Supported recipe categories and the prompt hint each one contributes.
var categoryHints = map[string]string{
	"quick":   "Ưu tiên công thức dưới 20 phút, ít bước, tối giản dụng cụ.",
	"easy":    "Dành cho người mới bắt đầu, bước rõ ràng, tránh kỹ thuật phức tạp.",
	"healthy": "Tối ưu dinh dưỡng, ít dầu mỡ, cân bằng đạm-bột-xơ, gợi ý thay thế lành mạnh.",
}

// Supported response languages.
const (
	LanguageVietnamese = "vi"
	LanguageEnglish    = "eng"
)

// NormalizeLanguage lowercases and validates a language code,
// defaulting to Vietnamese when empty.
func NormalizeLanguage(lang string) (string, error) {
	if lang == "" {
		return LanguageVietnamese, nil
	}
	switch normalized := strings.ToLower(lang); normalized {
	case LanguageVietnamese, LanguageEnglish:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s, %s)",
			ErrUnsupportedLanguage, lang, LanguageEnglish, LanguageVietnamese)
	}
}

// NormalizeCategories lowercases and deduplicates categories, preserving
// first-seen order. Unknown categories pass through: they still weight the
// embedding text even without a prompt hint.
func NormalizeCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// CategoryHints joins the prompt hints for the known categories in the list.
func CategoryHints(categories []string) string {
	var hints []string
	for _, c := range categories {
		if hint, ok := categoryHints[strings.ToLower(c)]; ok {
			hints = append(hints, hint)
		}
	}
	return strings.Join(hints, " ")
}
