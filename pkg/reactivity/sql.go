package reactivity

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/notegraph/internal/template"
	"github.com/leapstack-labs/notegraph/pkg/core"
)

var (
	templateTags = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}|\{#.*?#\}`)
	sqlComments  = regexp.MustCompile(`(?s)--[^\n]*|/\*.*?\*/`)
	sqlStrings   = regexp.MustCompile(`'(?:[^']|'')*'`)
	tableRef     = regexp.MustCompile(`(?i)\b(?:FROM|JOIN|INTO|UPDATE)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	envRef       = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// notTables are keywords that can follow FROM or JOIN without naming a table.
var notTables = map[string]struct{}{
	"select": {}, "where": {}, "group": {}, "order": {}, "having": {}, "limit": {},
	"offset": {}, "union": {}, "intersect": {}, "except": {}, "lateral": {},
	"unnest": {}, "values": {}, "only": {}, "table": {},
}

// extractSQL reads a SQL block. The declared variable name is its result;
// template references are hard uses; unqualified table names and ${VAR}
// environment references are optional uses.
func extractSQL(s *bindingSet, block core.Block) {
	s.define(block.MetaString(core.MetaVariableName))

	refs, err := template.References(block.Content, block.ID)
	s.use(refs...)
	if err != nil {
		s.warn(core.WarningTemplate, err.Error())
	}

	s.maybe(tableNames(block.Content)...)
	s.maybe(envNames(block.Content)...)
}

// tableNames finds unqualified names after FROM, JOIN, INTO and UPDATE,
// outside template tags, comments and string literals. Qualified names
// (schema.table) belong to the warehouse and are skipped.
func tableNames(sql string) []string {
	clean := templateTags.ReplaceAllString(sql, " ")
	clean = sqlComments.ReplaceAllString(clean, " ")
	clean = sqlStrings.ReplaceAllString(clean, "''")

	var names []string
	for _, m := range tableRef.FindAllStringSubmatchIndex(clean, -1) {
		name := clean[m[2]:m[3]]
		if _, skip := notTables[strings.ToLower(name)]; skip {
			continue
		}
		if m[3] < len(clean) && clean[m[3]] == '.' {
			continue
		}
		names = append(names, name)
	}
	return names
}

// envNames finds ${NAME} references outside comments.
func envNames(sql string) []string {
	clean := sqlComments.ReplaceAllString(sql, " ")
	var names []string
	for _, m := range envRef.FindAllStringSubmatch(clean, -1) {
		names = append(names, m[1])
	}
	return names
}
