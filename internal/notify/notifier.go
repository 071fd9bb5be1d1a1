package notify

import (
	"context"
	"fmt"
	"strings"
)

// Notifier sends a summary over one channel
type Notifier interface {
	Name() string
	Notify(ctx context.Context, s *Summary) error
}

// Title is the headline shared by every channel
func Title(s *Summary) string {
	return fmt.Sprintf("Car price monitor %s: %d differences", s.Date, s.Total)
}

// RenderText renders the summary as plain text (chat fallback, CLI output)
func RenderText(s *Summary) string {
	var b strings.Builder
	b.WriteString(Title(s))
	b.WriteString("\n")

	for _, sec := range s.Sections {
		fmt.Fprintf(&b, "\n%s %s\n", sec.Vendor, sec.Market)
		for _, rc := range sec.Counts {
			fmt.Fprintf(&b, "  %s: %d\n", rc.Label, rc.Count)
		}
		if len(sec.PriceChanges) > 0 {
			b.WriteString("  " + strings.Join(PriceTableHeader, " | ") + "\n")
			for _, row := range sec.PriceChanges {
				b.WriteString("  " + strings.Join(row.Cells(), " | ") + "\n")
			}
		}
	}
	return b.String()
}
