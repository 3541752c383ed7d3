// Package export serializes candidate-store snapshots: CSV and XLSX files
// for download, and an optional Notion database sink.
//
// Exporters read List() snapshots only, so they always see fully-merged
// records.
package export

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Columns is the fixed export column set, in order.
var Columns = []string{
	"Company Name",
	"Contact Name",
	"Address",
	"Phone",
	"Email",
	"Website",
	"Description",
	"Status",
	"Date Found/Updated",
	"Email Thread ID",
	"Area Searched",
	"Business Type",
}

const dateLayout = "2006-01-02 15:04:05"

// Row flattens a candidate into the export column order.
func Row(c model.Candidate) []string {
	name := c.CompanyName
	if name == "" {
		name = c.DiscoveryName
	}
	return []string{
		name,
		c.ContactName,
		c.Address,
		c.Phone,
		c.Email,
		c.Website,
		c.Description,
		string(c.Status),
		c.DateFound.Format(dateLayout),
		c.EmailThreadID,
		c.AreaSearched,
		c.BusinessType,
	}
}

// WriteCSV writes the candidates as CSV. Every cell is quote-wrapped and
// embedded quotes are doubled — unconditionally, not only when the cell
// contains a delimiter, so the output is stable for diffing and matches
// what the UI's download produces. (encoding/csv quotes lazily, hence the
// hand-rolled writer.)
func WriteCSV(w io.Writer, candidates []model.Candidate) error {
	var sb strings.Builder
	writeRecord(&sb, Columns)
	for _, c := range candidates {
		writeRecord(&sb, Row(c))
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return eris.Wrap(err, "export: write csv")
	}
	return nil
}

func writeRecord(sb *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteString("\r\n")
}
