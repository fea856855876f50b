package x86

// opcodeMap is a 256-entry map with one plane per mandatory prefix.
type opcodeMap struct {
	none, p66, pF2, pF3 [256]Entry
}

// tableSet is the one-byte map and the 0F map of one mode family.
type tableSet struct {
	base [256]Entry
	ext  opcodeMap
}

// Opcode tables. They are filled once by init and only read afterwards.
var (
	legacy tableSet // 16 and 32-bit modes
	long   tableSet // 64-bit mode

	groups       [][8]Entry
	rmGroups     [][8]Entry
	specials     [][4]Entry
	opcodeGroups []*opcodeMap

	fpuMem [8][8]Entry
	fpuReg [8][8]Entry
)

func init() {
	legacy = tableSet{
		base: baseTable(),
		ext: opcodeMap{
			none: extTable(),
			p66:  ext66Table(),
			pF2:  extF2Table(),
			pF3:  extF3Table(),
		},
	}
	long = patch64(legacy)
	fpuMem = fpuMemTable()
	fpuReg = fpuRegTable()
}

func tablesFor(mode Mode) *tableSet {
	if mode == Mode64 {
		return &long
	}
	return &legacy
}

// newGroup registers a ModR/M reg group. Missing trailing entries are reserved.
func newGroup(e ...Entry) Group {
	var g [8]Entry
	copy(g[:], e)
	groups = append(groups, g)
	return Group(len(groups) - 1)
}

func newRMGroup(e ...Entry) RMGroup {
	var g [8]Entry
	copy(g[:], e)
	rmGroups = append(rmGroups, g)
	return RMGroup(len(rmGroups) - 1)
}

// newSpecial registers a prefix-selected cell inside a ModR/M group: no
// prefix, 0x66, 0xF2, 0xF3.
func newSpecial(none, p66, pF2, pF3 Entry) SpecialGroup {
	specials = append(specials, [4]Entry{none, p66, pF2, pF3})
	return SpecialGroup(len(specials) - 1)
}

// newOpcodeGroup registers a map indexed by the byte after the escape.
func newOpcodeGroup(m *opcodeMap) OpcodeGroup {
	opcodeGroups = append(opcodeGroups, m)
	return OpcodeGroup(len(opcodeGroups) - 1)
}

var rexNames = [16]string{
	"rex", "rex.b", "rex.x", "rex.xb", "rex.r", "rex.rb", "rex.rx", "rex.rxb",
	"rex.w", "rex.wb", "rex.wx", "rex.wxb", "rex.wr", "rex.wrb", "rex.wrx", "rex.wrxb",
}

// patch64 derives the 64-bit tables from the legacy ones.
func patch64(t tableSet) tableSet {
	for _, b := range []byte{
		0x06, 0x07, 0x0e, 0x16, 0x17, 0x1e, 0x1f, 0x27, 0x2f, 0x37, 0x3f,
		0x60, 0x61, 0x62, 0x82, 0x9a, 0xc4, 0xc5, 0xce, 0xd4, 0xd5, 0xd6, 0xea,
	} {
		t.base[b] = Reserved{}
	}
	// Reached only when a REX byte is followed by another prefix.
	for i, name := range rexNames {
		t.base[0x40+i] = op(name)
	}
	t.base[0x63] = op("movsxd", gvNeedREX, ed)

	t.ext.none[0x24] = sse5Group24()
	t.ext.none[0x25] = sse5Group25()
	t.ext.none[0x26] = Reserved{}
	return t
}
