package leads

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadradar/internal/forms"
)

func exportForms() []*forms.Form {
	return []*forms.Form{
		{
			ID:   2,
			Name: "Walk-in",
			Fields: []*forms.Field{
				{ID: 20, Key: "notes", Label: "notes", Order: 2},
				{ID: 21, Key: "email", Label: "E-Mail address", Order: 1},
			},
		},
		{
			ID:   1,
			Name: "Expo",
			Fields: []*forms.Field{
				{ID: 10, Key: "email", Label: "Email", Order: 1},
				{ID: 11, Key: "company", Label: "Zeta Company", Order: 2},
				{ID: 12, Key: "region", Label: "Ébene", Order: 3},
			},
		},
	}
}

func exportItems() []*ListItem {
	return []*ListItem{
		{
			ID:         1,
			CreatedAt:  time.Date(2025, 5, 1, 9, 0, 0, 123000000, time.UTC),
			Form:       FormRef{ID: 1, Name: "Expo"},
			Event:      &EventRef{ID: 5, Name: "Swiss Expo"},
			CapturedBy: &UserRef{ID: 2, Name: "Sam", Email: "sam@example.com"},
			Values: []*Value{
				{FieldKey: "email", Value: "a@b.com"},
				{FieldKey: "company", Value: `Acme, "Inc"`},
				{FieldKey: "region", Value: "Genève"},
			},
		},
		{
			ID:        2,
			CreatedAt: time.Date(2025, 5, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*60*60)),
			Form:      FormRef{ID: 2, Name: "Walk-in"},
			Values: []*Value{
				{FieldKey: "email", Value: "x@y.com"},
				{FieldKey: "notes", Value: "line1\nline2"},
				{FieldKey: "email", Value: "ignored@y.com"},
			},
		},
	}
}

func TestExportColumns(t *testing.T) {
	cols := ExportColumns(exportForms())
	require.Len(t, cols, 4)

	assert.Equal(t, []ExportColumn{
		{Key: "region", Label: "Ébene"},
		{Key: "email", Label: "Email"},
		{Key: "notes", Label: "notes"},
		{Key: "company", Label: "Zeta Company"},
	}, cols, "first definition per key wins, sorted ignoring case and accents")
}

func TestExportColumns_LabelTieBreaksOnKey(t *testing.T) {
	cols := ExportColumns([]*forms.Form{{ID: 1, Fields: []*forms.Field{
		{ID: 1, Key: "b", Label: "Name", Order: 1},
		{ID: 2, Key: "a", Label: "name", Order: 2},
	}}})
	require.Len(t, cols, 2)
	assert.Equal(t, "a", cols[0].Key)
	assert.Equal(t, "b", cols[1].Key)
}

func TestBuildExport_RowValues(t *testing.T) {
	e := BuildExport(exportForms(), exportItems())
	require.Len(t, e.Rows, 2)
	assert.Equal(t, "Email (email)", e.Headers[7])
	assert.Equal(t, "2025-05-01T10:30:00.000Z", e.Rows[1][5], "timestamps are rendered in UTC")
	assert.Equal(t, "x@y.com", e.Rows[1][7], "first value per key wins")
	assert.Equal(t, "", e.Rows[1][9])
}

func TestBuildExport_NoForms(t *testing.T) {
	e := BuildExport(nil, nil)
	assert.Equal(t, BaseHeaders, e.Headers)
	assert.Empty(t, e.Rows)
}

func TestWriteCSV_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, BuildExport(exportForms(), exportItems())))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}), "export starts with a UTF-8 BOM")

	g := goldie.New(t)
	g.Assert(t, "export_all", buf.Bytes())
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "leads.csv", ExportFilename(nil))
	assert.Equal(t, "leads-form-12.csv", ExportFilename(int64Ptr(12)))
}
