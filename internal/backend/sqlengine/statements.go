package sqlengine

import "strings"

// splitStatements splits a script on semicolons that are outside quotes,
// identifiers and comments. Empty statements are dropped. Bodies that
// contain semicolons themselves, such as trigger definitions, are not
// recognised.
func splitStatements(script string) []string {
	var (
		stmts []string
		start int
		quote rune
	)
	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '[':
			quote = ']'
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
		case r == ';':
			stmts = appendStatement(stmts, string(runes[start:i]))
			start = i + 1
		}
	}
	if start < len(runes) {
		stmts = appendStatement(stmts, string(runes[start:]))
	}
	return stmts
}

func appendStatement(stmts []string, stmt string) []string {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" || isCommentOnly(stmt) {
		return stmts
	}
	return append(stmts, stmt)
}

func isCommentOnly(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

// statementKind returns the leading keyword of stmt in upper case.
func statementKind(stmt string) string {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			return strings.ToUpper(strings.TrimRight(fields[0], "("))
		}
	}
	return ""
}
