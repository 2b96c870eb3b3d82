package project

import (
	"regexp"
	"strings"
)

const maxProjectNameLen = 50

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	hyphenRunRe  = regexp.MustCompile(`-+`)
	unsafeRe     = regexp.MustCompile(`[^\w-]`)
	underscoreRe = regexp.MustCompile(`_+`)
)

// SanitizeProjectName turns an arbitrary project name into a safe
// directory name: lowercase, whitespace and hyphen runs collapsed to a
// single underscore, anything else non-word stripped, capped at 50
// characters. Names that sanitize away entirely become
// "unnamed_project".
func SanitizeProjectName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "unnamed_project"
	}
	s := strings.ToLower(name)
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = hyphenRunRe.ReplaceAllString(s, "_")
	s = unsafeRe.ReplaceAllString(s, "")
	s = underscoreRe.ReplaceAllString(s, "_")
	if s == "" || s == "_" {
		return "unnamed_project"
	}
	if len(s) > maxProjectNameLen {
		s = s[:maxProjectNameLen]
	}
	return s
}
