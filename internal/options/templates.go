package options

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// TokenVariable is the environment variable substituted for ${YQL_TOKEN}.
	TokenVariable = "YQL_TOKEN"
	// QueryIDVariable is replaced with the iteration counter of the dispatch.
	QueryIDVariable = "QUERY_ID"
)

// TemplateError is returned when a query references ${YQL_TOKEN} and the
// environment does not provide it.
type TemplateError struct {
	Variable string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("failed to replace ${%s} template, please specify %s environment variable", e.Variable, e.Variable)
}

func placeholder(name string) string {
	return "${" + name + "}"
}

// substituteToken replaces the credential placeholder. A missing variable is
// only an error when the placeholder is actually used.
func substituteToken(sql string, env Env) (string, error) {
	token, ok := env.Lookup(TokenVariable)
	if ok {
		return strings.ReplaceAll(sql, placeholder(TokenVariable), token), nil
	}
	if strings.Contains(sql, placeholder(TokenVariable)) {
		return "", &TemplateError{Variable: TokenVariable}
	}
	return sql, nil
}

func substituteQueryID(sql string, queryID int) string {
	return strings.ReplaceAll(sql, placeholder(QueryIDVariable), strconv.Itoa(queryID))
}
