package interpreter

import (
	"regexp"
	"strconv"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

var leadingQuantityRE = regexp.MustCompile(`^(\d+)\s+`)

// ExtractQuantity reads a leading integer followed by whitespace. span is the
// byte range the count and its trailing whitespace occupy, or nil when there
// is no leading count. Zero and unparsable counts fall back to 1 but still
// consume their span.
func ExtractQuantity(text string) (int, []int) {
	m := leadingQuantityRE.FindStringSubmatchIndex(text)
	if m == nil {
		return domain.DefaultQuantity, nil
	}

	span := []int{m[0], m[1]}
	n, err := strconv.Atoi(text[m[2]:m[3]])
	if err != nil || n < 1 {
		return domain.DefaultQuantity, span
	}
	return n, span
}
