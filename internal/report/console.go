package report

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// PrintSummary 输出控制台汇总：各集合数量、风险结果、命中的规则与失败汇总。
func PrintSummary(w io.Writer, b Bundle) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	inv := b.Inventory
	fmt.Fprintf(tw, "%s\t(run %s)\n", b.Title, b.RunID)
	fmt.Fprintf(tw, "servers\t%d\n", len(inv.Servers))
	fmt.Fprintf(tw, "scopes\t%d\n", len(inv.Scopes))
	fmt.Fprintf(tw, "leases\t%d\n", len(inv.Leases))
	fmt.Fprintf(tw, "reservations\t%d\n", len(inv.Reservations))
	fmt.Fprintf(tw, "options\t%d\n", len(inv.Options))
	fmt.Fprintf(tw, "exclusions\t%d\n", len(inv.Exclusions))
	fmt.Fprintf(tw, "zones\t%d\n", len(inv.Zones))
	fmt.Fprintf(tw, "records\t%d\n", len(inv.Records))
	fmt.Fprintf(tw, "risk\t%d (%s)\n", b.Risk.Total, b.Risk.Tier)
	for _, f := range b.Risk.Triggered() {
		fmt.Fprintf(tw, "  %s\t%s +%d (%s)\n", f.ScopeKey, f.Rule, f.Weight, f.Detail)
	}
	fmt.Fprintf(tw, "failures\t%d\n", b.Failures.Total)
	if b.Failures.Total > 0 {
		for _, kc := range b.KindCounts() {
			fmt.Fprintf(tw, "  %s\t%d\n", kc.Kind, kc.Count)
		}
		for _, n := range b.Failures.ByNode {
			fmt.Fprintf(tw, "  %s\t%d\n", n.Node, n.Total)
		}
	}
	return tw.Flush()
}
