package canvas

import (
	"regexp"
	"strings"
)

var roleTagPattern = regexp.MustCompile(`(?i)^\s*<role>\s*(user|assistant|system)\s*</role>[ \t]*\r?\n?`)

// ParseRoleTag reads a leading <role>...</role> marker from text. It returns
// the role and the text with the marker removed. Text without a marker is
// returned unchanged with RoleNone.
func ParseRoleTag(text string) (Role, string) {
	match := roleTagPattern.FindStringSubmatchIndex(text)
	if match == nil {
		return RoleNone, text
	}
	role := Role(strings.ToLower(text[match[2]:match[3]]))
	return role, text[match[1]:]
}

// normalizeRoles lifts inline role markers into the typed Role field.
func normalizeRoles(nodes []Node) {
	for i := range nodes {
		if nodes[i].Type != KindText && nodes[i].Type != "" {
			continue
		}
		role, rest := ParseRoleTag(nodes[i].Text)
		if role == RoleNone {
			continue
		}
		if nodes[i].Role == RoleNone {
			nodes[i].Role = role
		}
		nodes[i].Text = rest
	}
}
