package commands

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"git.home.luguber.info/inful/refsite/internal/build"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderReport summarizes a build as a two-column table.
func renderReport(r build.Report) string {
	count := strconv.Itoa
	rows := [][]string{
		{"Build", r.BuildID},
		{"Scope", string(r.Scope)},
		{"Status", string(r.Status)},
		{"Pages rendered", count(r.Rendered)},
		{"Files copied", count(r.Copied)},
		{"Directories", count(r.Dirs)},
		{"Template assets", count(r.Assets)},
		{"Templates", count(r.Templates)},
		{"Reference bundles", count(r.Refs.Bundles)},
		{"Fragments", count(r.Refs.Fragments)},
		{"Media files", count(r.Refs.Media)},
		{"Aligned fragments", count(r.Refs.Aligned)},
		{"Transcripts generated", count(r.Refs.Generated)},
		{"Transcript failures", count(r.Refs.GenerationFailure)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	return renderTable([]string{"Item", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
