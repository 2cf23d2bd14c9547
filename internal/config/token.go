// File: internal/config/token.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// LoadAuthToken reads the account's opaque auth token from its token file.
// Token files hold one token per line so several accounts can share a file;
// TokenLine selects the account's line. Blank lines and surrounding
// whitespace are ignored.
func LoadAuthToken(acct AccountConfig) (string, error) {
	path, err := homedir.Expand(acct.TokenFile)
	if err != nil {
		return "", fmt.Errorf("expanding token file path for %s: %w", acct.ID, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token file for %s: %w", acct.ID, err)
	}

	var tokens []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tokens = append(tokens, line)
		}
	}

	if acct.TokenLine < 0 || acct.TokenLine >= len(tokens) {
		return "", fmt.Errorf("token file %s has %d token(s), account %s wants line %d",
			acct.TokenFile, len(tokens), acct.ID, acct.TokenLine)
	}
	return tokens[acct.TokenLine], nil
}
