package score

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteTable prints the summary as an aligned console table.
func WriteTable(w io.Writer, summary *Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT\tNAME\tSCORE\tMAX\tPERCENT\tERRORS")
	fmt.Fprintln(tw, strings.Repeat("-", 72))
	for _, s := range summary.Students {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f%%\t%d\n",
			s.StudentID, s.StudentName, s.TotalScore, s.MaxTotalScore, s.Percentage, len(s.ExtractionErrors))
	}
	fmt.Fprintf(tw, "\n%d students\n", summary.TotalStudents)
	return tw.Flush()
}
