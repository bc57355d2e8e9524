package frontend

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/history"
)

var printer = message.NewPrinter(language.English)

// Stat is one labelled dashboard value.
type Stat struct {
	Label string
	Value string
}

// ProfileStats formats profile for display.
func ProfileStats(profile *common.UserProfile) []Stat {
	if profile == nil {
		return nil
	}
	return []Stat{
		{"Jobs completed", printer.Sprintf("%d", profile.JobsCompleted)},
		{"Jobs cancelled", printer.Sprintf("%d", profile.JobsCancelled)},
		{"Mass transported", printer.Sprintf("%.0f kg", profile.TotalMassTransported)},
		{"Money earned", printer.Sprintf("€%.0f", profile.TotalMoneyEarned)},
		{"Top speed", printer.Sprintf("%.1f km/h", profile.TopSpeed)},
		{"Distance driven", printer.Sprintf("%.0f km", profile.TotalDistance)},
	}
}

// EntryLine formats a job history entry as one line.
func EntryLine(entry history.Entry) string {
	r := entry.Report
	line := printer.Sprintf("%s  %s  %s → %s  %d kg  €%d",
		entry.RecordedAt.Local().Format("2006-01-02 15:04"),
		entry.Outcome(),
		r.SourceCityID,
		r.DestinationCityID,
		r.Mass,
		r.Income,
	)
	if r.IsLate {
		line += "  (late)"
	}
	return line
}
