package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/otec/pkg/domain"
)

// PrintHistory writes one line per operation.
func PrintHistory(w io.Writer, ops []*domain.Operation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REV\tAGENT\tSTATUS\tFLAGS\tMUTATIONS")
	for _, op := range ops {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", op.Revision(), op.AgentID(), op.Status(), op.Flags(), op)
	}
	return tw.Flush()
}

// PrintReplay writes the final state of every replica.
func PrintReplay(w io.Writer, res *ReplayResult, withHistory bool) error {
	for _, a := range res.Agents {
		fmt.Fprintf(w, "%s (rev %d): %q\n", a.Name, a.Revision, a.Content)
		if withHistory {
			if err := PrintHistory(w, a.History); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
	}
	if res.Converged {
		_, err := fmt.Fprintln(w, "converged")
		return err
	}
	_, err := fmt.Fprintln(w, "DIVERGED")
	return err
}
