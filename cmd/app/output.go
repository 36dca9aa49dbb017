package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arumata/savevault/internal/usecase"
)

func printArchives(w io.Writer, archives []usecase.ArchiveInfo, empty string) error {
	if len(archives) == 0 {
		_, err := fmt.Fprintln(w, empty)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tCREATED")
	for _, a := range archives {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, humanize.IBytes(uint64(a.SizeBytes)), formatWhen(a.CreatedAt))
	}
	return tw.Flush()
}

func printArchiveInfo(w io.Writer, a usecase.ArchiveInfo) error {
	_, err := fmt.Fprintf(w, "Save:     %s\nName:     %s\nPath:     %s\nSize:     %s (%d bytes)\nCreated:  %s\n",
		a.SaveName, a.Name, a.Path, humanize.IBytes(uint64(a.SizeBytes)), a.SizeBytes, formatWhen(a.CreatedAt))
	return err
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04:05"), humanize.Time(t))
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatWhen(*t)
}
