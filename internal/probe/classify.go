package probe

import (
	"fmt"
	"sort"
	"strings"

	"wideform/internal/parser"
	"wideform/internal/schemadef"
	"wideform/internal/sdmx"
)

// pathDelimCandidates are probed in order; '|' is the usual vocabulary
// convention, so it wins over '/' which also shows up inside units like
// "EJ/yr".
var pathDelimCandidates = []rune{'|', '/', '>'}

// catDensity is the minimum fraction of filled cells that must carry the
// delimiter for a column to qualify as the categorical path column.
const catDensity = 0.5

// colStats are per-column sample tallies.
type colStats struct {
	filled   int
	numeric  int
	distinct map[string]int
	example  string
	delims   map[rune]int
}

func gatherStats(header []string, recs []parser.Record) []*colStats {
	stats := make([]*colStats, len(header))
	for i := range stats {
		stats[i] = &colStats{distinct: make(map[string]int), delims: make(map[rune]int)}
	}
	for _, rec := range recs {
		for i, h := range header {
			v := rec[h]
			if v == "" {
				continue
			}
			st := stats[i]
			st.filled++
			st.distinct[v]++
			if st.example == "" {
				st.example = v
			}
			if isNumeric(v) {
				st.numeric++
			}
			for _, d := range pathDelimCandidates {
				if strings.ContainsRune(v, d) {
					st.delims[d]++
				}
			}
		}
	}
	return stats
}

// classifyWithSchema matches every header against the definition's
// components and checks the sampled paths against its code hierarchy.
// Unmatched headers become varying labels when they look like periods and
// unknowns otherwise; a run would read those unknowns as varying labels, so
// they usually mean a typo in the header or the schema.
func classifyWithSchema(header []string, recs []parser.Record, def *schemadef.Definition, pref string) (Result, error) {
	_, cl, _, err := def.Build()
	if err != nil {
		return Result{}, fmt.Errorf("build schema %s: %w", def.Schema, err)
	}

	type comp struct {
		id   string
		role Role
	}
	match := make(map[string]comp)
	for _, d := range def.Dimensions {
		c := comp{id: d.ID, role: RoleKeyDimension}
		switch {
		case d.Varying:
			c.role = RoleVaryingLabel
		case d.Enumerated:
			c.role = RoleCategorical
		}
		match[foldLabel(d.ID)] = c
	}
	for _, a := range def.Attributes {
		match[foldLabel(a.ID)] = comp{id: a.ID, role: RoleAttribute}
	}

	stats := gatherStats(header, recs)
	period := classifyPeriods(header, func(i int) bool {
		_, ok := match[foldLabel(header[i])]
		return ok
	}, pref)

	res := Result{
		Headers:       header,
		PathDelimiter: def.Delimiter,
		PeriodKind:    period.kind,
		PeriodLayout:  period.layout,
	}
	res.Columns = make([]Column, len(header))
	seen := make(map[string]bool)
	catIdx := -1
	for i, h := range header {
		c := Column{
			Header:   h,
			Folded:   foldLabel(h),
			Distinct: len(stats[i].distinct),
			Filled:   stats[i].filled,
			Example:  stats[i].example,
		}
		switch m, ok := match[c.Folded]; {
		case ok:
			c.Role, c.Matched = m.role, m.id
			seen[m.id] = true
			if m.role == RoleCategorical {
				catIdx = i
			}
		case period.isPeriod[i]:
			c.Role = RoleVaryingLabel
		default:
			c.Role = RoleUnknown
		}
		res.Columns[i] = c
	}

	// Key-defining dimensions the header does not satisfy; header
	// compilation would fail on these.
	for _, d := range def.Dimensions {
		if !d.Varying && !seen[d.ID] {
			res.Missing = append(res.Missing, d.ID)
		}
	}

	if catIdx >= 0 {
		res.Paths = pathSample(stats[catIdx], cl, def.Delimiter)
		res.PathsChecked = true
	}
	res.ValueCells, res.NumericCells = valueStats(res.Columns, stats)
	return res, nil
}

// classifyHeuristic guesses roles with no schema to lean on: period-like
// headers are varying labels, the densest delimited column is the
// categorical path, a column headed "unit" is an attribute by convention,
// and the rest are key dimensions unless their cells are empty or all
// numeric. When no delimited column qualifies, the key-dimension column
// with the largest sampled vocabulary is promoted to categorical — the
// model needs exactly one enumerated dimension, and the widest column is
// the best guess at the subject classification.
func classifyHeuristic(header []string, recs []parser.Record, pref string) Result {
	stats := gatherStats(header, recs)
	period := classifyPeriods(header, nil, pref)

	catIdx, delim := detectCategorical(header, stats, period.isPeriod)
	if catIdx < 0 {
		catIdx = widestDimension(header, stats, period.isPeriod)
	}

	res := Result{Headers: header, PeriodKind: period.kind, PeriodLayout: period.layout}
	if catIdx >= 0 {
		if delim != 0 {
			res.PathDelimiter = string(delim)
		}
		res.Paths = pathSample(stats[catIdx], nil, res.PathDelimiter)
	}

	ids := make(idSet)
	res.Columns = make([]Column, len(header))
	for i, h := range header {
		c := Column{
			Header:   h,
			Folded:   foldLabel(h),
			Distinct: len(stats[i].distinct),
			Filled:   stats[i].filled,
			Example:  stats[i].example,
		}
		switch {
		case period.isPeriod[i]:
			c.Role = RoleVaryingLabel
		case i == catIdx:
			c.Role = RoleCategorical
			c.Matched = ids.claim(h)
		case c.Folded == "unit":
			c.Role = RoleAttribute
			c.Matched = ids.claim(h)
		case stats[i].filled == 0:
			c.Role = RoleUnknown
		case stats[i].numeric == stats[i].filled:
			// Numbers under a non-period header are not dimension values.
			c.Role = RoleUnknown
		default:
			c.Role = RoleKeyDimension
			c.Matched = ids.claim(h)
		}
		res.Columns[i] = c
	}
	res.ValueCells, res.NumericCells = valueStats(res.Columns, stats)
	return res
}

// detectCategorical guesses the categorical column: the first candidate
// delimiter with a qualifying column wins, and among qualifying columns the
// one with the largest sampled vocabulary. Columns headed "unit" never
// qualify; "EJ/yr" is a unit, not a path.
func detectCategorical(header []string, stats []*colStats, isPeriod []bool) (int, rune) {
	for _, d := range pathDelimCandidates {
		best, bestDistinct := -1, 0
		for i := range header {
			if isPeriod[i] || stats[i].filled == 0 || foldLabel(header[i]) == "unit" {
				continue
			}
			density := float64(stats[i].delims[d]) / float64(stats[i].filled)
			if density < catDensity {
				continue
			}
			if n := len(stats[i].distinct); n > bestDistinct {
				best, bestDistinct = i, n
			}
		}
		if best >= 0 {
			return best, d
		}
	}
	return -1, 0
}

// widestDimension picks the promotion fallback: the dimension-shaped column
// with the most distinct sampled values.
func widestDimension(header []string, stats []*colStats, isPeriod []bool) int {
	best, bestDistinct := -1, 0
	for i := range header {
		st := stats[i]
		if isPeriod[i] || st.filled == 0 || st.numeric == st.filled || foldLabel(header[i]) == "unit" {
			continue
		}
		if n := len(st.distinct); n > bestDistinct {
			best, bestDistinct = i, n
		}
	}
	return best
}

// pathSample turns the categorical column's distinct values into a
// frequency-ordered path list, resolving each against the code hierarchy
// when one is available.
func pathSample(st *colStats, cl *sdmx.Codelist, delim string) []PathCount {
	out := make([]PathCount, 0, len(st.distinct))
	for path, n := range st.distinct {
		pc := PathCount{Path: path, Count: n}
		if cl != nil {
			segs := strings.Split(path, delim)
			for i := range segs {
				segs[i] = strings.TrimSpace(segs[i])
			}
			_, err := cl.ResolvePath(segs)
			pc.Known = err == nil
		}
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func valueStats(cols []Column, stats []*colStats) (values, numeric int) {
	for i, c := range cols {
		if c.Role != RoleVaryingLabel {
			continue
		}
		values += stats[i].filled
		numeric += stats[i].numeric
	}
	return values, numeric
}

// idSet allocates unique component ids derived from header text.
type idSet map[string]bool

// claim uppercases the identifier form of the header and disambiguates
// collisions with a numeric suffix.
func (s idSet) claim(header string) string {
	id := strings.ToUpper(truncateFieldName(normalizeFieldName(header)))
	pick := id
	for n := 2; s[pick]; n++ {
		pick = fmt.Sprintf("%s_%d", id, n)
	}
	s[pick] = true
	return pick
}

// suggestDefinition drafts a schema definition from the heuristic
// classification: dimensions and attributes in header order, the period
// dimension appended as the varying one, and the sampled vocabulary as the
// code list. Concepts are emitted only where the original header adds a
// display name beyond the derived id. Returns nil when the sample yielded
// no dimension columns.
func suggestDefinition(name string, res *Result) *schemadef.Definition {
	schema := "schema"
	if name != "" {
		schema = normalizeFieldName(name)
	}
	delim := res.PathDelimiter
	if delim == "" {
		delim = "|"
	}
	def := &schemadef.Definition{Schema: schema, Delimiter: delim}

	enumSeen := false
	for _, c := range res.Columns {
		switch c.Role {
		case RoleKeyDimension:
			def.Dimensions = append(def.Dimensions, schemadef.DimensionDef{ID: c.Matched})
		case RoleCategorical:
			def.Dimensions = append(def.Dimensions, schemadef.DimensionDef{ID: c.Matched, Enumerated: true})
			enumSeen = true
		case RoleAttribute:
			def.Attributes = append(def.Attributes, schemadef.AttributeDef{ID: c.Matched})
		default:
			continue
		}
		if c.Header != c.Matched {
			def.Concepts = append(def.Concepts, schemadef.ConceptDef{ID: c.Matched, Name: c.Header})
		}
	}
	if len(def.Dimensions) == 0 || !enumSeen {
		return nil
	}

	periodID, periodName := "PERIOD", "Period"
	if res.PeriodKind == "" || res.PeriodKind == periodYear {
		periodID, periodName = "YEAR", "Year"
	}
	used := make(map[string]bool, len(def.Dimensions)+len(def.Attributes))
	for _, d := range def.Dimensions {
		used[d.ID] = true
	}
	for _, a := range def.Attributes {
		used[a.ID] = true
	}
	for _, cand := range []string{periodID, "PERIOD", "VARYING"} {
		if !used[cand] {
			periodID = cand
			break
		}
	}
	def.Dimensions = append(def.Dimensions, schemadef.DimensionDef{ID: periodID, Varying: true})
	def.Concepts = append(def.Concepts, schemadef.ConceptDef{ID: periodID, Name: periodName})

	def.Codes = make([]string, len(res.Paths))
	for i, pc := range res.Paths {
		def.Codes[i] = pc.Path
	}
	sort.Strings(def.Codes)
	return def
}
