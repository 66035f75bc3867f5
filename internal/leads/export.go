package leads

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/wolfman30/leadradar/internal/forms"
)

// BaseHeaders are the lead metadata columns that precede the field columns.
var BaseHeaders = []string{
	"Lead ID",
	"Form Name",
	"Event Name",
	"Captured By",
	"Captured By Email",
	"Created At",
}

const exportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportColumn is one field column of the export.
type ExportColumn struct {
	Key   string
	Label string
}

// Header renders the column title as "Label (key)".
func (c ExportColumn) Header() string {
	return fmt.Sprintf("%s (%s)", c.Label, c.Key)
}

// Export is a rendered table ready for CSV serialisation.
type Export struct {
	Headers []string
	Rows    [][]string
}

// ExportColumns returns one column per distinct field key across the given
// forms. The first definition of a key wins, visiting forms by id and fields
// by order. Columns sort by label ignoring case and accents, then by key.
func ExportColumns(fs []*forms.Form) []ExportColumn {
	sorted := append([]*forms.Form(nil), fs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	seen := make(map[string]struct{})
	var cols []ExportColumn
	for _, form := range sorted {
		fields := append([]*forms.Field(nil), form.Fields...)
		forms.SortFields(fields)
		for _, f := range fields {
			if _, ok := seen[f.Key]; ok {
				continue
			}
			seen[f.Key] = struct{}{}
			cols = append(cols, ExportColumn{Key: f.Key, Label: f.Label})
		}
	}

	c := collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(cols, func(i, j int) bool {
		if cmp := c.CompareString(cols[i].Label, cols[j].Label); cmp != 0 {
			return cmp < 0
		}
		return cols[i].Key < cols[j].Key
	})
	return cols
}

// BuildExport lays out leads as rows under the base headers and the field
// columns derived from fs. A lead with no value for a column gets "".
func BuildExport(fs []*forms.Form, items []*ListItem) *Export {
	cols := ExportColumns(fs)

	headers := make([]string, 0, len(BaseHeaders)+len(cols))
	headers = append(headers, BaseHeaders...)
	for _, col := range cols {
		headers = append(headers, col.Header())
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		byKey := make(map[string]string, len(item.Values))
		for _, v := range item.Values {
			if _, ok := byKey[v.FieldKey]; !ok {
				byKey[v.FieldKey] = v.Value
			}
		}

		row := make([]string, 0, len(headers))
		row = append(row,
			strconv.FormatInt(item.ID, 10),
			item.Form.Name,
			eventName(item.Event),
			userName(item.CapturedBy),
			userEmail(item.CapturedBy),
			item.CreatedAt.UTC().Format(exportTimeLayout),
		)
		for _, col := range cols {
			row = append(row, byKey[col.Key])
		}
		rows = append(rows, row)
	}
	return &Export{Headers: headers, Rows: rows}
}

// WriteCSV writes the export as UTF-8 with a byte order mark, comma
// separated, with double-quote escaping.
func WriteCSV(w io.Writer, e *Export) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(e.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(e.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// ExportFilename names the download for an optional form filter.
func ExportFilename(formID *int64) string {
	if formID == nil {
		return "leads.csv"
	}
	return fmt.Sprintf("leads-form-%d.csv", *formID)
}

func eventName(e *EventRef) string {
	if e == nil {
		return ""
	}
	return e.Name
}

func userName(u *UserRef) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func userEmail(u *UserRef) string {
	if u == nil {
		return ""
	}
	return u.Email
}
