package editor

import "strings"

// FilterCommands returns the commands whose title, description or any
// keyword contains query, case-insensitively, in registry order. A blank
// query returns all commands. The result is never nil.
func FilterCommands(all []Command, query string) []Command {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Command, 0, len(all))
	for _, c := range all {
		if q == "" || matches(c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c Command, q string) bool {
	if strings.Contains(strings.ToLower(c.Title), q) || strings.Contains(strings.ToLower(c.Description), q) {
		return true
	}
	for _, k := range c.Keywords {
		if strings.Contains(strings.ToLower(k), q) {
			return true
		}
	}
	return false
}
