package resolve

// Index answers "does this record match a canonical record seen earlier in
// the pass?". A record matches when its normalized name equals a canonical
// record's normalized name, or when its generated id equals a canonical id.
// Empty normalized names never match. When both rules hit different records
// the earliest inserted one wins, which is what a linear scan in insertion
// order would return.
type Index struct {
	byName map[string]string // normalized name -> id
	pos    map[string]int    // id -> insertion position
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		byName: make(map[string]string),
		pos:    make(map[string]int),
	}
}

// Len returns the number of indexed canonical records.
func (ix *Index) Len() int {
	return len(ix.pos)
}

// Has reports whether id is already indexed.
func (ix *Index) Has(id string) bool {
	_, ok := ix.pos[id]
	return ok
}

// Find returns the id of the earliest-inserted canonical record matching the
// given normalized name or generated id.
func (ix *Index) Find(normalized, id string) (string, bool) {
	if normalized == "" {
		return "", false
	}

	nameID, nameOK := ix.byName[normalized]
	idPos, idOK := ix.pos[id]

	switch {
	case nameOK && idOK:
		if ix.pos[nameID] <= idPos {
			return nameID, true
		}
		return id, true
	case nameOK:
		return nameID, true
	case idOK:
		return id, true
	default:
		return "", false
	}
}

// Add records a newly inserted canonical record. Empty normalized names are
// tracked by id only so they can never be matched by name.
func (ix *Index) Add(normalized, id string) {
	if _, ok := ix.pos[id]; !ok {
		ix.pos[id] = len(ix.pos)
	}
	if normalized == "" {
		return
	}
	if _, ok := ix.byName[normalized]; !ok {
		ix.byName[normalized] = id
	}
}
