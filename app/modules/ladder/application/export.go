package ladderservice

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"github.com/xuri/excelize/v2"
)

const standingsSheet = "Standings"

var standingsHeader = []any{"Rank", "Team", "Players", "Points", "Played", "Won", "Status"}

// ExportStandingsXLSX renders the pool's standings as a spreadsheet.
func (s *LadderService) ExportStandingsXLSX(ctx context.Context, pool ladderdomain.PoolKey) ([]byte, error) {
	standings, err := s.GetStandings(ctx, pool)
	if err != nil {
		return nil, err
	}
	return standingsWorkbook(pool, standings)
}

func standingsWorkbook(pool ladderdomain.PoolKey, standings []Standing) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", standingsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Ladder standings",
		Subject: pool.String(),
	}); err != nil {
		return nil, fmt.Errorf("set doc props: %w", err)
	}

	if err := f.SetSheetRow(standingsSheet, "A1", &standingsHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, st := range standings {
		names := make([]string, 0, len(st.Players))
		for _, p := range st.Players {
			if p.Name != "" {
				names = append(names, p.Name)
			} else {
				names = append(names, p.ID.String())
			}
		}
		row := []any{st.Rank, st.Name, strings.Join(names, " / "), st.Points, st.MatchesPlayed, st.MatchesWon, string(st.Status)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(standingsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(standingsSheet, "B", "C", 28); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ChartPalette colours the standings chart.
type ChartPalette struct {
	Background drawing.Color
	Bar        drawing.Color
	Text       drawing.Color
}

// DefaultPalette is the club's chart palette.
var DefaultPalette = ChartPalette{
	Background: drawing.ColorFromHex("FFFFFF"),
	Bar:        drawing.ColorFromHex("1F6F50"),
	Text:       drawing.ColorFromHex("222222"),
}

// RenderStandingsChart draws the pool's points as a PNG bar chart in rank
// order.
func (s *LadderService) RenderStandingsChart(ctx context.Context, pool ladderdomain.PoolKey) ([]byte, error) {
	standings, err := s.GetStandings(ctx, pool)
	if err != nil {
		return nil, err
	}
	return standingsChart(pool, standings, DefaultPalette)
}

func standingsChart(pool ladderdomain.PoolKey, standings []Standing, palette ChartPalette) ([]byte, error) {
	bars := make([]chart.Value, 0, len(standings))
	top := 1
	for _, st := range standings {
		top = max(top, st.Points)
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("#%d %s", st.Rank, st.Name),
			Value: float64(st.Points),
			Style: chart.Style{FillColor: palette.Bar, StrokeColor: palette.Bar},
		})
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Label: "no teams", Value: 0})
	}

	graph := chart.BarChart{
		Title:      "Points " + pool.Tier,
		TitleStyle: chart.Style{FontColor: palette.Text},
		Background: chart.Style{FillColor: palette.Background},
		Canvas:     chart.Style{FillColor: palette.Background},
		Width:      max(400, 90*len(bars)),
		Height:     400,
		BarWidth:   50,
		XAxis:      chart.Style{FontColor: palette.Text},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: palette.Text},
			// A fixed range keeps an all-zero pool renderable.
			Range: &chart.ContinuousRange{Min: 0, Max: float64(top)},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render standings chart: %w", err)
	}
	return buffer.Bytes(), nil
}
