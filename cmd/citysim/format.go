package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/talgya/cityscape/internal/engine"
	"github.com/talgya/cityscape/internal/store"
)

func printReport(w io.Writer, c *store.City, snap engine.Snapshot) {
	eco := snap.Economics
	tick := c.Tick()
	fmt.Fprintf(w, "%s (tick %d)\n", engine.SimTime(tick), tick)
	fmt.Fprintf(w, "  Buildings:   %s\n", humanize.Comma(int64(len(snap.Buildings))))
	fmt.Fprintf(w, "  Population:  %s\n", humanize.Comma(int64(eco.Population)))
	fmt.Fprintf(w, "  Jobs:        %s (employment %.0f%%)\n", humanize.Comma(int64(eco.Jobs)), eco.EmploymentRate*100)
	fmt.Fprintf(w, "  Happiness:   %d\n", snap.Happiness)
	fmt.Fprintf(w, "  Pollution:   %d\n", snap.Pollution)
	fmt.Fprintf(w, "  Power:       %s units demanded\n", humanize.CommafWithDigits(eco.PowerDemand, 1))
	fmt.Fprintf(w, "  Treasury:    $%s (%s/day: +%s tax, -%s upkeep)\n",
		humanize.Comma(int64(c.Funds())),
		signed(eco.NetIncome),
		humanize.Comma(int64(eco.TaxRevenue)),
		humanize.Comma(int64(eco.MaintenanceCost)))
	fmt.Fprintf(w, "  Transport:   %.0f%% avg, %d well connected, %d isolated\n",
		snap.Transport.AverageConnectivity, snap.Transport.WellConnected, snap.Transport.Isolated)
}

func signed(v int) string {
	if v >= 0 {
		return "+" + humanize.Comma(int64(v))
	}
	return humanize.Comma(int64(v))
}

func printDBSize(w io.Writer, size int64) {
	fmt.Fprintf(w, "  Save file:   %s\n", humanize.Bytes(uint64(size)))
}

func printBuildings(w io.Writer, c *store.City, snap engine.Snapshot) {
	updates := make(map[string]engine.Update, len(snap.Buildings))
	for _, u := range snap.Buildings {
		updates[u.ID] = u
	}
	records := c.Buildings()
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Y != records[j].Y {
			return records[i].Y < records[j].Y
		}
		return records[i].X < records[j].X
	})

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tTYPE\tSIZE\tPOP\tJOBS\tHAPPY\tSTATUS")
	for _, r := range records {
		typ := r.Type
		if r.BuildingType != "" {
			typ = r.BuildingType
		}
		u := updates[r.ID]
		fmt.Fprintf(tw, "(%d,%d)\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.X, r.Y, typ, r.Size, u.Output.Population, u.Output.Jobs, r.Happiness, u.Status)
	}
	tw.Flush()
}

func printEvents(w io.Writer, events []store.Event) {
	fmt.Fprintf(w, "\nRECENT EVENTS (%d):\n", len(events))
	for _, e := range events {
		fmt.Fprintf(w, "  [%s] %s: %s\n", engine.SimTime(e.Tick), e.Category, e.Description)
	}
}
