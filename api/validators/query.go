package validators

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
)

// ParseQueryList splits a comma separated query parameter, dropping blanks and repeats.
// Repeated parameters (?ids=a&ids=b) are accepted as well.
func ParseQueryList(r *http.Request, key string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// ParseQueryDecimal reads an optional positive decimal; absent yields an invalid NullDecimal.
func ParseQueryDecimal(r *http.Request, key string) (decimal.NullDecimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if !value.IsPositive() {
		return decimal.NullDecimal{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be positive").WithDetails(map[string]any{"field": key})
	}
	return decimal.NewNullDecimal(value), nil
}
