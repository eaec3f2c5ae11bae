package validate

import (
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

// Shape check only: 2024-13-40 passes.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date checks that token has the YYYY-MM-DD shape and returns it trimmed.
func Date(token string) (string, error) {
	token = strings.TrimSpace(token)
	if !datePattern.MatchString(token) {
		return "", fmt.Errorf("%w: %q", contractx.ErrInvalidDateFormat, token)
	}
	return token, nil
}
