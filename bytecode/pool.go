package bytecode

// ConstKind discriminates a constant pool entry's payload type.
type ConstKind byte

const (
	ConstNumber ConstKind = iota
	ConstString
	ConstBigInt // decimal string form; interp parses it into math/big when OpLoadConst runs
)

// Const is one constant-pool entry. Numbers, strings, and property/
// identifier names referenced by OpGetProp/OpGetGlobal/etc. all live in
// the same pool, addressed by a single uint32 index space, matching how
// a wasm/internal/binary-style format keeps one flat name/constant
// table per section rather than per-kind tables.
type Const struct {
	Kind   ConstKind
	Number float64
	Str    string
}

// Pool is a module's constant table, built during decode (or by the
// assembler in vmtest) and deduplicated by Add.
type Pool struct {
	entries []Const
	byValue map[Const]uint32
}

// NewPool creates an empty constant pool.
func NewPool() *Pool {
	return &Pool{byValue: make(map[Const]uint32)}
}

// Add interns c, returning its existing index if an identical entry was
// already added.
func (p *Pool) Add(c Const) uint32 {
	if idx, ok := p.byValue[c]; ok {
		return idx
	}
	idx := uint32(len(p.entries))
	p.entries = append(p.entries, c)
	p.byValue[c] = idx
	return idx
}

// Get returns the entry at idx.
func (p *Pool) Get(idx uint32) (Const, bool) {
	if int(idx) >= len(p.entries) {
		return Const{}, false
	}
	return p.entries[idx], true
}

// Len returns the number of entries.
func (p *Pool) Len() int { return len(p.entries) }

// Entries returns the pool in index order, for encoding.
func (p *Pool) Entries() []Const { return p.entries }
