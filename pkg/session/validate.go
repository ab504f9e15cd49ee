package session

import (
	"fmt"
	"regexp"
	"strings"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Content matching these shapes is refused locally and never transmitted.
var defaultBlockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union[\s/*]+select|drop\s+table|insert\s+into|delete\s+from|truncate\s+table)\b`),
	regexp.MustCompile(`(?i)['"]\s*(or|and)\s+['"]?\d+['"]?\s*=\s*['"]?\d`),
	regexp.MustCompile(`(?i)<script[\s>]`),
}

func (s *Session) validateCompose(content string, attachments []models.Attachment) *Error {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) == 0 && len(attachments) == 0 {
		return newError(models.ReasonValidation, "empty message was not allowed")
	}
	if err := validate.Var(trimmed, fmt.Sprintf("max=%d", s.opts.MaxContentLength)); err != nil {
		return newError(models.ReasonValidation, "message is too long, maximum is %d characters", s.opts.MaxContentLength)
	}
	for _, pattern := range s.opts.BlockedPatterns {
		if pattern.MatchString(trimmed) {
			return newError(models.ReasonValidation, "message contains content that is not allowed")
		}
	}
	return nil
}
