// Package query lets tenants author ad-hoc read-only analytical SQL. Safety
// is a textual screen plus bound parameters, not a parser: only single SELECT
// statements shaped by convention are accepted, values are always bound, and
// the one identifier position ({{date_field}}) is allowlist-sanitized.
package query

import (
	"database/sql"
	"regexp"
	"strings"
)

// DefaultDateField is substituted when a {{date_field}} override sanitizes
// to nothing.
const DefaultDateField = "dt_cadastro"

var bannedTokens = []string{";", " drop ", " delete ", " update ", " insert ", " alter ", " create "}

// IsReadOnlySelect reports whether candidate query text is a single read
// statement. A UTF-8 BOM, surrounding whitespace and one trailing semicolon
// are tolerated; anything not starting with SELECT, containing an embedded
// semicolon or a DDL/DML keyword token is rejected.
func IsReadOnlySelect(text string) bool {
	lower := strings.ToLower(trimStatement(text))
	if !strings.HasPrefix(lower, "select") {
		return false
	}
	for _, b := range bannedTokens {
		if strings.Contains(lower, b) {
			return false
		}
	}
	return true
}

// trimStatement strips the BOM, surrounding whitespace and one trailing
// semicolon so the text can be embedded in an outer selection.
func trimStatement(text string) string {
	s := strings.TrimPrefix(text, "\uFEFF")
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}

// Context carries the per-invocation filter values a tenant may supply.
// TenantID is always set by the caller, never by the tenant's query text.
type Context struct {
	TenantID  int64
	From      *string
	To        *string
	DateField string
	// Filters feeds {{filter:<name>}} tokens; nil values remove the token.
	Filters map[string]any
}

var filterToken = regexp.MustCompile(`\{\{filter:([A-Za-z0-9_]+)\}\}`)

// ExpandTemplate replaces placeholder tokens with bound parameters and
// returns the expanded text plus the named arguments to execute it with.
//
//	{{tenant_id}}     -> :tenant_id, always bound
//	{{from}} {{to}}   -> bound when supplied, literal NULL otherwise
//	{{date_field}}    -> sanitized identifier (never bound: parameter binding
//	                     cannot protect an identifier position)
//	{{filter:<name>}} -> " AND <name> = :<name> " when a value is supplied,
//	                     removed entirely otherwise
func ExpandTemplate(text string, qc Context) (string, []any) {
	params := []any{sql.Named("tenant_id", qc.TenantID)}
	s := strings.ReplaceAll(text, "{{tenant_id}}", ":tenant_id")

	if strings.Contains(s, "{{date_field}}") {
		s = strings.ReplaceAll(s, "{{date_field}}", SanitizeIdentifier(qc.DateField))
	}

	if qc.From != nil {
		s = strings.ReplaceAll(s, "{{from}}", ":from")
		params = append(params, sql.Named("from", *qc.From))
	} else {
		s = strings.ReplaceAll(s, "{{from}}", "NULL")
	}

	if qc.To != nil {
		s = strings.ReplaceAll(s, "{{to}}", ":to")
		params = append(params, sql.Named("to", *qc.To))
	} else {
		s = strings.ReplaceAll(s, "{{to}}", "NULL")
	}

	s = filterToken.ReplaceAllStringFunc(s, func(tok string) string {
		name := filterToken.FindStringSubmatch(tok)[1]
		v, ok := qc.Filters[name]
		if !ok || v == nil {
			return ""
		}
		params = append(params, sql.Named(name, v))
		return " AND " + name + " = :" + name + " "
	})

	return s, params
}

// SanitizeIdentifier keeps only alphanumerics, underscore and dot, falling
// back to the default date column when nothing survives.
func SanitizeIdentifier(ident string) string {
	var b strings.Builder
	for _, r := range ident {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return DefaultDateField
	}
	return b.String()
}
