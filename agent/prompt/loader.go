package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/agronomist.txt
var agronomistRaw string

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Agronomist string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Agronomist: strings.TrimSpace(agronomistRaw),
	}
}
