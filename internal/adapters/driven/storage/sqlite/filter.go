package sqlite

import (
	"sort"
	"strings"

	"github.com/mitiak/raggy/internal/core/domain"
)

// metaMatch compares a metadata value with a wanted string. Strings and
// booleans are decided exactly. Numbers always pass, because SQLite renders
// reals differently from Document.MetadataString; SearchFilters.Matches
// settles them afterwards. Null, objects and arrays never match.
const metaMatch = `(CASE json_type(d.metadata, ?) ` +
	`WHEN 'text' THEN json_extract(d.metadata, ?) = ? ` +
	`WHEN 'true' THEN ? = 'true' WHEN 'false' THEN ? = 'false' ` +
	`WHEN 'integer' THEN 1 WHEN 'real' THEN 1 ` +
	`ELSE 0 END)`

// metaPath quotes key as a JSON path member. Keys containing quotes or
// backslashes are rejected by SearchFilters.Validate.
func metaPath(key string) string {
	return `$."` + key + `"`
}

// filterClause translates filters into a WHERE fragment over the
// documents table aliased as d. An empty clause means no restriction.
// The fragment may admit extra rows but never drops a matching one.
func filterClause(f domain.SearchFilters) (string, []any) {
	var conds []string
	var args []any

	metaEq := func(key, want string) {
		p := metaPath(key)
		conds = append(conds, metaMatch)
		args = append(args, p, p, want, want, want)
	}

	if f.Product != nil {
		metaEq(domain.MetaProduct, *f.Product)
	}
	if f.Version != nil {
		metaEq(domain.MetaVersion, *f.Version)
	}
	if f.Language != nil {
		metaEq(domain.MetaLanguage, *f.Language)
	}
	if f.Source != nil {
		p := metaPath(domain.MetaSource)
		conds = append(conds, "("+metaMatch+" OR instr(lower(COALESCE(d.source_location, '')), lower(?)) > 0)")
		args = append(args, p, p, *f.Source, *f.Source, *f.Source, *f.Source)
	}
	if f.DateFrom != nil {
		conds = append(conds, "d.fetched_at >= ?")
		args = append(args, f.DateFrom.UnixNano())
	}
	if f.DateTo != nil {
		conds = append(conds, "d.fetched_at <= ?")
		args = append(args, f.DateTo.UnixNano())
	}

	keys := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		metaEq(k, f.Extra[k])
	}

	return strings.Join(conds, " AND "), args
}
