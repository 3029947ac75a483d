package plot

import (
	"bytes"
	"time"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	width  = 960
	height = 480
)

// TrendPNG draws each trend entry's cumulative score from the contest start
// up to until, which is clamped into the contest window.
func TrendPNG(contest scoreboard.Contest, entries []scoreboard.TrendEntry, until time.Time) ([]byte, error) {
	if len(entries) == 0 {
		return renderNoData("No scores yet")
	}

	if until.After(contest.EndTime) {
		until = contest.EndTime
	}
	if !until.After(contest.StartTime) {
		until = contest.StartTime.Add(time.Minute)
	}

	series := make([]chart.Series, 0, len(entries))
	for _, e := range entries {
		xs := []time.Time{contest.StartTime}
		ys := []float64{0}
		last := 0.0
		for _, p := range e.History {
			// Step shape: hold the previous total until the change.
			xs = append(xs, p.Time, p.Time)
			ys = append(ys, last, float64(p.Total))
			last = float64(p.Total)
		}
		xs = append(xs, until)
		ys = append(ys, last)

		name := e.User.Nickname
		if name == "" {
			name = e.User.Username
		}
		series = append(series, chart.TimeSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeWidth: 2},
		})
	}

	graph := chart.Chart{
		Title:  contest.Name,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Time",
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04"),
		},
		YAxis: chart.YAxis{
			Name: "Score",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoData(msg string) ([]byte, error) {
	graph := chart.Chart{
		Width:  400,
		Height: 200,
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				r.SetFontColor(drawing.ColorBlack)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
