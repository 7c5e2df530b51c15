package render

import "strings"

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	"\r", `\r`,
	"$", `\$`,
	`'`, `\'`,
	`"`, `\"`,
)

// escape turns arbitrary text into the body of a single scripting-language
// string literal.
func escape(s string) string {
	return escaper.Replace(s)
}

// quote returns s as a single-quoted literal.
func quote(s string) string {
	return "'" + escape(s) + "'"
}

// indent prefixes every non-empty line but the first with n spaces.
func indent(s string, n int) string {
	if n <= 0 {
		return s
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
