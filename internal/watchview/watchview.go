// Package watchview decodes WatchDashboard events into what the desktop
// client draws.
package watchview

import (
	"fmt"
	"image/color"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/izzyreal/bbdash/internal/protocol"
	"github.com/izzyreal/bbdash/internal/queueview"
	"github.com/izzyreal/bbdash/internal/server/grpcapi"
	"github.com/izzyreal/bbdash/internal/version"
)

type Snapshot struct {
	StreamID   string
	Seq        int64
	SentUTC    string
	ServerName string
	ServerVer  string
	Hostname   string
	Compatible bool
	Dashboard  protocol.DashboardResponse
}

func FromEvent(evt *structpb.Struct) (Snapshot, error) {
	if evt == nil {
		return Snapshot{}, fmt.Errorf("empty watch event")
	}
	fields := evt.GetFields()
	s := Snapshot{
		StreamID:   fields["stream_id"].GetStringValue(),
		Seq:        int64(fields["seq"].GetNumberValue()),
		SentUTC:    fields["sent_utc"].GetStringValue(),
		Compatible: true,
	}
	if info := fields["server_info"].GetStructValue(); info != nil {
		var si protocol.ServerInfoResponse
		if err := grpcapi.DecodeStruct(info, &si); err != nil {
			return Snapshot{}, err
		}
		s.ServerName = si.Name
		s.ServerVer = si.Version
		s.Hostname = si.Hostname
		s.Compatible = version.Compatible(si.Version)
	}
	if dash := fields["dashboard"].GetStructValue(); dash != nil {
		if err := grpcapi.DecodeStruct(dash, &s.Dashboard); err != nil {
			return Snapshot{}, err
		}
	}
	return s, nil
}

// StatusColor mirrors the bubble colors of the HTML dashboard.
func StatusColor(s queueview.Status) color.NRGBA {
	switch s {
	case queueview.StatusGood:
		return color.NRGBA{R: 0x2d, G: 0xa4, B: 0x4e, A: 0xff}
	case queueview.StatusBad:
		return color.NRGBA{R: 0xcf, G: 0x22, B: 0x2e, A: 0xff}
	case queueview.StatusDanger:
		return color.NRGBA{R: 0xbf, G: 0x87, B: 0x00, A: 0xff}
	case queueview.StatusUnauthorized:
		return color.NRGBA{R: 0x82, G: 0x50, B: 0xdf, A: 0xff}
	default:
		return color.NRGBA{R: 0x65, G: 0x6d, B: 0x76, A: 0xff}
	}
}

// Row is one rendered text line of the status list.
type Row struct {
	Text   string
	Status queueview.Status
	Header bool
	// Link is the performance dashboard on header rows and the line's
	// target otherwise.
	Link string
}

func Rows(d protocol.DashboardResponse) []Row {
	var rows []Row
	for _, p := range d.Platforms {
		rows = append(rows, Row{
			Text:   p.Platform + " (" + p.Buildmaster + ")",
			Status: queueview.StatusNoBubble,
			Header: true,
			Link:   p.PerformanceDashboardURL,
		})
		for _, sec := range p.Sections {
			for i, line := range sec.Lines {
				label := ""
				if i == 0 {
					label = sec.Label
				}
				text := fmt.Sprintf("%-18s %s", label, line.Message)
				if line.Label != "" {
					text += "  · " + line.Label
				}
				rows = append(rows, Row{Text: text, Status: line.Status, Link: line.URL})
			}
		}
	}
	return rows
}
