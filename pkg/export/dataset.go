package export

import (
	"fmt"
	"unicode/utf8"
)

// Dataset defines tabular export content. Rows are positional and must have
// one value per header.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

func (d Dataset) validate(kind string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("%s row %d has %d values, want %d", kind, i+1, len(row), len(d.Headers))
		}
	}
	return nil
}

// ColumnLengths returns, per column, the longest value in characters with the
// header included.
func (d Dataset) ColumnLengths() []int {
	lengths := make([]int, len(d.Headers))
	for i, header := range d.Headers {
		lengths[i] = utf8.RuneCountInString(header)
	}
	for _, row := range d.Rows {
		for i := range lengths {
			if i >= len(row) {
				break
			}
			if n := utf8.RuneCountInString(row[i]); n > lengths[i] {
				lengths[i] = n
			}
		}
	}
	return lengths
}
