package readme

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	globMetacharactersConstant = "*?[{"
	negationPrefixConstant     = "!"
	posixSeparatorConstant     = "/"
)

var (
	annotationExpression = regexp.MustCompile(`<!--\s*README(?:\s+([\s\S]*?))??\s*-->`)
	separatorNormalizer  = strings.NewReplacer(`\\`, posixSeparatorConstant, `\`, posixSeparatorConstant)
)

// Extraction holds the patterns read from README content and the tokens that ended a block early.
type Extraction struct {
	Patterns []string
	Rejected []GlobSyntaxError
}

// Extract scans every <!-- README ... --> block of content.
// Tokens are taken in order until the first one that is not a valid glob; prose after the list is ignored.
func Extract(content string) Extraction {
	extraction := Extraction{Patterns: []string{}}
	seenPatterns := map[string]struct{}{}

	for _, match := range annotationExpression.FindAllStringSubmatch(content, -1) {
		for _, token := range strings.Fields(match[1]) {
			pattern := separatorNormalizer.Replace(token)
			if syntaxError := validateGlobToken(pattern); syntaxError != nil {
				extraction.Rejected = append(extraction.Rejected, *syntaxError)
				break
			}
			if _, seen := seenPatterns[pattern]; seen {
				continue
			}
			seenPatterns[pattern] = struct{}{}
			extraction.Patterns = append(extraction.Patterns, pattern)
		}
	}
	return extraction
}

// ExtractPatterns returns the deduplicated patterns declared by content in first-seen order.
func ExtractPatterns(content string) []string {
	return Extract(content).Patterns
}

func validateGlobToken(token string) *GlobSyntaxError {
	pattern := strings.TrimPrefix(token, negationPrefixConstant)
	if !strings.ContainsAny(pattern, globMetacharactersConstant) {
		return &GlobSyntaxError{Token: token, Reason: missingMetacharacterReason}
	}
	if !doublestar.ValidatePattern(pattern) {
		return &GlobSyntaxError{Token: token, Reason: malformedPatternReason}
	}
	return nil
}
