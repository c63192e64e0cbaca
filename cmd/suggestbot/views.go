package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"suggestbot/internal/requests"
)

const queryPreviewWidth = 48

func renderRequestTable(list []*requests.Request) string {
	rows := make([][]string, 0, len(list))
	for _, req := range list {
		rows = append(rows, []string{
			req.ID,
			formatTime(req.CreatedAt),
			string(req.BotStatus),
			string(req.Status),
			displayValue(string(req.CatalogMatch)),
			truncate(req.RawQuery, queryPreviewWidth),
		})
	}
	return renderTable(
		[]string{"ID", "Created", "Bot", "Staff", "Catalog", "Query"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func renderEventTable(events []requests.Event) string {
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			formatTime(event.Timestamp),
			string(event.Type),
			event.ActorID,
			truncate(event.PayloadJSON, 60),
		})
	}
	return renderTable(
		[]string{"Time", "Event", "Actor", "Payload"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}

func renderRunTable(runs []requests.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		completed := "-"
		if run.CompletedAt != nil {
			completed = formatTime(*run.CompletedAt)
		}
		rows = append(rows, []string{
			run.ID,
			formatTime(run.StartedAt),
			completed,
			string(run.Status),
			strconv.Itoa(run.Processed),
			strconv.Itoa(run.Errored),
			truncate(run.ErrorMessage, 40),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Completed", "Status", "Processed", "Errored", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func printRequestDetail(out io.Writer, req *requests.Request) {
	lines := [][2]string{
		{"ID", req.ID},
		{"Created", formatTime(req.CreatedAt)},
		{"Patron", strconv.FormatInt(req.PatronRecordID, 10)},
		{"Query", req.RawQuery},
		{"Format", displayValue(req.FormatPreference)},
		{"Patron notes", displayValue(req.PatronNotes)},
		{"Staff status", string(req.Status)},
		{"Staff notes", displayValue(req.StaffNotes)},
		{"Bot status", string(req.BotStatus)},
		{"Bot processed", formatTimePtr(req.BotProcessedAt)},
		{"Bot error", displayValue(req.BotError)},
		{"Catalog match", displayValue(string(req.CatalogMatch))},
		{"Catalog checked", formatTimePtr(req.CatalogCheckedAt)},
		{"Open Library found", formatBoolPtr(req.OpenLibraryFound)},
		{"Open Library checked", formatTimePtr(req.OpenLibraryCheckedAt)},
		{"Consortium available", formatBoolPtr(req.ConsortiumAvailable)},
		{"Bot action", displayValue(req.BotAction)},
		{"Bot notes", displayValue(req.BotNotes)},
	}
	for _, line := range lines {
		fmt.Fprintf(out, "%-22s %s\n", line[0]+":", line[1])
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func formatBoolPtr(v *bool) string {
	if v == nil {
		return "-"
	}
	return yesNo(*v)
}

func displayValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if width <= 0 || len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
