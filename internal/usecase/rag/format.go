package rag

import (
	"fmt"
	"strings"

	"github.com/chefmate-cloud/chefmate/internal/domain"
)

const (
	contextHeader = "=== THAM KHẢO CÁC CÔNG THỨC TƯƠNG TỰ ==="
	contextFooter = "=== YÊU CẦU ===\n" +
		"Dựa vào các công thức trên, tạo công thức MỚI và SÁNG TẠO với phong cách riêng. " +
		"Đảm bảo có ít nhất 3 bước chi tiết."
)

// formatContext renders the deduplicated matches into the context block
// injected ahead of the generation prompt. The header and footer
// instruct the model to treat the matches as inspiration, not source.
func formatContext(results []domain.ScoredDocument) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = formatBlock(i+1, r)
	}

	return "\n\n" + contextHeader + "\n" + strings.Join(blocks, "\n\n") +
		"\n\n" + contextFooter
}

func formatBlock(rank int, r domain.ScoredDocument) string {
	meta := r.Document.Metadata

	return fmt.Sprintf(
		"Công thức tham khảo %d (độ tương đồng: %.2f):\n%s - %s\nNguyên liệu chính: %s\nThời gian: Chuẩn bị %s, Nấu %s, Phục vụ %s",
		rank, r.Similarity(),
		meta.DishName, orNA(meta.Description),
		orNA(r.Document.IngredientFragment()),
		meta.PrepTime, meta.CookTime, meta.Servings,
	)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
