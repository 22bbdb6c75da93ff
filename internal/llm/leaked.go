package llm

import (
	"regexp"
	"strings"
)

// The model occasionally emits tool-call source code as plain text instead
// of a structured function call. These patterns detect and recover it.
var (
	leakedCallRe = regexp.MustCompile(`(?:default_api\.|print\s*\(\s*(?:default_api\.)?)?(check_available_slots|check_availability|create_appointment|cancel_appointment|list_appointments|confirm_appointment|update_appointment_tags)\s*\(([^)]*)\)`)
	leakedArgRe  = regexp.MustCompile(`(\w+)\s*=\s*(?:"([^"]*)"|'([^']*)'|(\[[^\]]*\])|([\w:-]+))`)
	codeFenceRe  = regexp.MustCompile("```")
	printCallRe  = regexp.MustCompile(`print\s*\(`)
	apiCallRe    = regexp.MustCompile(`default_api\.\w+`)
)

// ContainsLeakedSyntax reports whether text looks like leaked tool-call
// code rather than a customer-facing reply.
func ContainsLeakedSyntax(text string) bool {
	return codeFenceRe.MatchString(text) ||
		printCallRe.MatchString(text) ||
		apiCallRe.MatchString(text) ||
		leakedCallRe.MatchString(text)
}

// ParseLeakedAction attempts to recover a structured action from leaked
// call syntax. It returns false when no action can be extracted; callers
// then fall back to a corrective re-prompt.
func ParseLeakedAction(text string) (*Action, bool) {
	m := leakedCallRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	kind, ok := ParseActionKind(m[1])
	if !ok {
		return nil, false
	}

	args := make(map[string]string)
	for _, am := range leakedArgRe.FindAllStringSubmatch(m[2], -1) {
		value := am[2]
		if value == "" {
			value = am[3]
		}
		if value == "" && am[4] != "" {
			value = parseLeakedList(am[4])
		}
		if value == "" {
			value = am[5]
		}
		args[am[1]] = value
	}
	return &Action{Kind: kind, Args: args}, true
}

// parseLeakedList turns a Python-style list literal into comma-joined values.
func parseLeakedList(raw string) string {
	raw = strings.Trim(raw, "[]")
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ",")
}
