package models

// EntityGraph holds parsed or loaded records grouped by kind. Order within
// a kind is preserved from the source.
type EntityGraph struct {
	records map[EntityKind][]Record
}

// NewEntityGraph returns an empty graph.
func NewEntityGraph() *EntityGraph {
	return &EntityGraph{records: make(map[EntityKind][]Record)}
}

// Add appends a record under its kind.
func (g *EntityGraph) Add(r Record) {
	g.records[r.Kind()] = append(g.records[r.Kind()], r)
}

// Records returns the records of one kind.
func (g *EntityGraph) Records(kind EntityKind) []Record {
	return g.records[kind]
}

// Kinds returns the kinds present, in dependency order.
func (g *EntityGraph) Kinds() []EntityKind {
	kinds := make([]EntityKind, 0, len(g.records))
	for _, kind := range DependencyOrder {
		if len(g.records[kind]) > 0 {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Total counts all records across kinds.
func (g *EntityGraph) Total() int {
	total := 0
	for _, recs := range g.records {
		total += len(recs)
	}
	return total
}

// Find returns the record of the given kind and natural key, or nil.
func (g *EntityGraph) Find(kind EntityKind, key string) Record {
	for _, r := range g.records[kind] {
		if r.NaturalKey() == key {
			return r
		}
	}
	return nil
}

// Dedupe collapses in-file natural-key collisions last-wins per kind and
// returns the keys that collided.
func (g *EntityGraph) Dedupe() map[EntityKind][]string {
	collisions := make(map[EntityKind][]string)
	for kind, recs := range g.records {
		seen := make(map[string]int, len(recs))
		deduped := recs[:0]
		for _, r := range recs {
			key := r.NaturalKey()
			if idx, ok := seen[key]; ok {
				deduped[idx] = r
				collisions[kind] = append(collisions[kind], key)
				continue
			}
			seen[key] = len(deduped)
			deduped = append(deduped, r)
		}
		g.records[kind] = deduped
	}
	if len(collisions) == 0 {
		return nil
	}
	return collisions
}

// StampInstitution overwrites tenant scope on every record that carries an
// institution reference. Adapters are institution-agnostic; the caller owns
// tenant scoping.
func (g *EntityGraph) StampInstitution(shortName string) {
	for _, recs := range g.records {
		for _, r := range recs {
			switch rec := r.(type) {
			case *Institution:
				rec.ShortName = shortName
			case *Program:
				rec.InstitutionShortName = shortName
			case *Course:
				rec.InstitutionShortName = shortName
			case *Term:
				rec.InstitutionShortName = shortName
			case *CourseOffering:
				rec.InstitutionShortName = shortName
			case *User:
				if rec.Role != RoleSiteAdmin {
					rec.InstitutionShortName = shortName
				}
			case *CourseSection:
				rec.InstitutionShortName = shortName
			case *CourseOutcome:
				rec.InstitutionShortName = shortName
			}
		}
	}
}
