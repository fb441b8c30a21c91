package readme

import "fmt"

const (
	globSyntaxErrorTemplateConstant = "invalid glob token %q: %s"
	missingMetacharacterReason      = "no glob metacharacter"
	malformedPatternReason          = "malformed pattern"
)

// GlobSyntaxError reports an annotation token that is not a usable glob. Extraction stops at the first one in a block.
type GlobSyntaxError struct {
	Token  string
	Reason string
}

// Error describes the rejected token.
func (syntaxError GlobSyntaxError) Error() string {
	return fmt.Sprintf(globSyntaxErrorTemplateConstant, syntaxError.Token, syntaxError.Reason)
}
