package export

// Sheet is a rendered-format-agnostic attendance sheet: a titled table with
// optional summary lines above the header row.
type Sheet struct {
	Title   string
	Summary []string
	Headers []string
	Rows    [][]string
}
