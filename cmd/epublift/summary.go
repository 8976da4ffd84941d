package main

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"epublift/internal/workflow"
)

func renderSummary(result workflow.Result) string {
	disposition := "deleted"
	if result.Kept {
		disposition = "retained"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(result.DisplayTitle)
	tw.AppendRows([]table.Row{
		{"Book", result.Book.ID},
		{"Bookflow", result.Book.BookflowID},
		{"Output", result.OutputPath},
		{"Duration", result.Elapsed.Round(time.Millisecond)},
		{"Remote job", disposition},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
	})
	return tw.Render()
}
