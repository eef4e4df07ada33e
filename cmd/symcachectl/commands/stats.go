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

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print host resource stats for the machine symcachectl runs on",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	hostStats := inspector.CollectHostStats()

	if outputFormat == "yaml" {
		return output.PrintYAML(os.Stdout, hostStats)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(":")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	table.Append([]string{"Logical CPUs", fmt.Sprintf("%d", hostStats.LogicalCPUs)})
	table.Append([]string{"Load average (1m)", fmt.Sprintf("%.2f", hostStats.LoadAverage1m)})
	table.Append([]string{"Memory used", memoryLine(hostStats)})

	table.Render()
	return nil
}

func memoryLine(s inspector.HostStats) string {
	usage := fmt.Sprintf("%s / %s (%.1f%%)",
		humanize.Bytes(s.MemoryUsedBytes), humanize.Bytes(s.MemoryTotalBytes), s.MemoryUsedPct)

	switch {
	case s.MemoryUsedPct >= 90:
		return colorize(color.FgRed, usage)
	case s.MemoryUsedPct >= 75:
		return colorize(color.FgYellow, usage)
	default:
		return usage
	}
}
