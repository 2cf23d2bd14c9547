package llmclient

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/xKony/x-automate/api/schemas"
)

// LoadPrompt reads the system prompt template from disk. The prompt defines
// the simulated account's voice; it is loaded once at startup.
func LoadPrompt(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding prompt path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("reading prompt file %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return prompt, nil
}

// userPrompt renders the per-request instruction handed to the model. The
// intent steers the register (a reply addresses the author, a quote adds
// commentary, a post stands alone).
func userPrompt(req schemas.GenerationRequest) string {
	switch req.Intent {
	case schemas.IntentQuote:
		return "Write a short quote-post commenting on the following post:\n\n" + req.Context
	case schemas.IntentPost:
		return "Write a short original post." + contextSuffix(req.Context)
	default:
		return "Write a short reply to the following post:\n\n" + req.Context
	}
}

func contextSuffix(context string) string {
	if context == "" {
		return ""
	}
	return " Draw on this for inspiration:\n\n" + context
}
