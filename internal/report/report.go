// Package report renders the end-of-run equity curve and realized profit to
// a standalone HTML file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"upbot/internal/agent"
)

// Write renders the balance history and per-instrument realized profit to
// path. With fewer than two samples there is nothing worth plotting and no
// file is written.
func Write(path string, history []agent.BalancePoint, instruments []agent.InstrumentStatus) error {
	if len(history) < 2 {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	xAxis := make([]string, len(history))
	balances := make([]opts.LineData, len(history))
	profits := make([]opts.LineData, len(history))
	for i, p := range history {
		xAxis[i] = p.At.Format(time.DateTime)
		balances[i] = opts.LineData{Value: p.Total}
		profits[i] = opts.LineData{Value: p.Profit}
	}

	balanceLine := charts.NewLine()
	balanceLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Total balance",
			Subtitle: fmt.Sprintf("%s - %s", history[0].At.Format(time.DateTime), history[len(history)-1].At.Format(time.DateTime)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	balanceLine.SetXAxis(xAxis)
	balanceLine.AddSeries("balance", balances, charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))

	profitLine := charts.NewLine()
	profitLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Realized profit"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	profitLine.SetXAxis(xAxis)
	profitLine.AddSeries("profit", profits, charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(balanceLine, profitLine)
	if len(instruments) > 0 {
		page.AddCharts(profitBars(instruments))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func profitBars(instruments []agent.InstrumentStatus) *charts.Bar {
	names := make([]string, len(instruments))
	values := make([]opts.BarData, len(instruments))
	for i, st := range instruments {
		names[i] = st.Instrument
		values[i] = opts.BarData{Value: st.RealizedProfit}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros, Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Realized profit by instrument"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names)
	bar.AddSeries("profit", values)
	return bar
}
