package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/symcached/symcached/internal/inspector"
	"github.com/symcached/symcached/internal/output"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List positive and negative cache entries found on disk",
	RunE:  runEntries,
}

func runEntries(cmd *cobra.Command, args []string) error {
	entries, err := inspector.Walk(cacheRoot)
	if err != nil {
		return fmt.Errorf("walking cache root %q: %w", cacheRoot, err)
	}

	if outputFormat == "yaml" {
		return output.PrintYAML(os.Stdout, entries)
	}

	if len(entries) == 0 {
		fmt.Println("no cache entries found")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"State", "Name", "ID+Age", "Version", "Size", "Age"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	positive, negative := 0, 0
	for _, e := range entries {
		switch e.State {
		case inspector.StatePositive:
			positive++
		case inspector.StateNegative:
			negative++
		}
		table.Append([]string{
			stateLabel(e.State),
			e.Name,
			e.IDAndAge,
			e.Version,
			humanize.Bytes(uint64(e.Size)),
			humanize.Time(e.ModTime),
		})
	}
	table.Render()

	fmt.Printf("\n%d positive, %d negative\n", positive, negative)
	return nil
}

func stateLabel(state inspector.EntryState) string {
	switch state {
	case inspector.StatePositive:
		return colorize(color.FgGreen, "positive")
	case inspector.StateNegative:
		return colorize(color.FgYellow, "negative")
	default:
		return string(state)
	}
}

func colorize(attr color.Attribute, s string) string {
	if noColor {
		return s
	}
	return color.New(attr).Sprint(s)
}
