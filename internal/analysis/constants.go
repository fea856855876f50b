package analysis

const (
	// MaxStringLength is the longest C string read for an operand note.
	MaxStringLength = 256

	// MinStringLength is the shortest C string worth a note; shorter
	// runs of printable bytes are usually not text.
	MinStringLength = 4
)
