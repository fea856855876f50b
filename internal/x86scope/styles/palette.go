package styles

// Listing colors, shared by the chroma style and the viewer.
const (
	Foreground = "#D4D4D4"
	Background = "#1E1E1E"
	Address    = "#4F4F4F"
	Mnemonic   = "#FFFFFF"
	Register   = "#7C9C9D"
	Number     = "#FF5F87"
	Label      = "#FFD700"
	Comment    = "#6A9955"
	Invalid    = "#F44747"
	Selection  = "#264F78"
)
