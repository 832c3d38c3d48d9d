package output

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/mrp-aps/pkg/application/dto"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

const day = 24 * time.Hour

// GanttChart lays out a run's planned orders as one row per planning key
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
	RunDate      time.Time
}

// GanttBar is one planned order placed on the chart
type GanttBar struct {
	Order entities.PlannedOrder
	X     int
	Width int
	Color string
}

// NewGanttChart sizes the chart to the run horizon, widened to any order outside it
func NewGanttChart(result *dto.PlanResult) *GanttChart {
	gc := &GanttChart{
		Width:        1200,
		MarginLeft:   200,
		MarginTop:    60,
		MarginRight:  100,
		MarginBottom: 80,
		RowHeight:    28,
		StartTime:    result.Run.Horizon.Start,
		EndTime:      result.Run.Horizon.End,
		RunDate:      result.Run.RunDate,
	}
	for _, o := range result.Orders {
		if gc.StartTime.IsZero() || o.StartDate.Before(gc.StartTime) {
			gc.StartTime = o.StartDate
		}
		if o.DueDate.After(gc.EndTime) {
			gc.EndTime = o.DueDate
		}
	}
	if !gc.EndTime.After(gc.StartTime) {
		gc.EndTime = gc.StartTime.Add(day)
	}

	keys := make(map[entities.PlanningKey]bool)
	for _, o := range result.Orders {
		keys[o.Key()] = true
	}
	gc.Height = len(keys)*gc.RowHeight + gc.MarginTop + gc.MarginBottom
	if len(keys) == 0 {
		gc.Height = 200
	}
	return gc
}

// GenerateSVG renders the chart
func (gc *GanttChart) GenerateSVG(result *dto.PlanResult) string {
	if len(result.Orders) == 0 {
		return gc.generateEmptyChart()
	}

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height)
	svg.WriteString(`<defs><style>`)
	svg.WriteString(`.key-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.run-date { stroke: #d32f2f; stroke-width: 1; stroke-dasharray: 4 2; }`)
	svg.WriteString(`.order-bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.firmed { stroke: #000; stroke-width: 3; }`)
	svg.WriteString(`.order-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style></defs>`)
	fmt.Fprintf(&svg, `<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height)
	fmt.Fprintf(&svg, `<text x="%d" y="30" class="title" text-anchor="middle">Planned Orders - Run %s</text>`,
		gc.Width/2, html.EscapeString(result.Run.ID))

	rows := gc.organizeBars(gc.createBars(result.Orders))
	gc.drawTimeAxis(&svg)
	gc.drawTimeGrid(&svg, len(rows))
	gc.drawRows(&svg, rows)
	gc.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

func (gc *GanttChart) x(t time.Time) int {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	total := gc.EndTime.Sub(gc.StartTime)
	return gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(total)*float64(chartWidth))
}

func (gc *GanttChart) createBars(orders []entities.PlannedOrder) []GanttBar {
	bars := make([]GanttBar, 0, len(orders))
	for _, o := range orders {
		x := gc.x(o.StartDate)
		width := gc.x(o.DueDate) - x
		if width < 2 {
			width = 2
		}
		bars = append(bars, GanttBar{Order: o, X: x, Width: width, Color: gc.getBarColor(o)})
	}
	return bars
}

type ganttRow struct {
	key  entities.PlanningKey
	bars []GanttBar
}

// organizeBars groups bars per planning key; rows are ordered by earliest start, then key
func (gc *GanttChart) organizeBars(bars []GanttBar) []ganttRow {
	byKey := make(map[entities.PlanningKey][]GanttBar)
	for _, b := range bars {
		byKey[b.Order.Key()] = append(byKey[b.Order.Key()], b)
	}
	rows := make([]ganttRow, 0, len(byKey))
	for key, bs := range byKey {
		sort.Slice(bs, func(i, j int) bool { return bs[i].Order.StartDate.Before(bs[j].Order.StartDate) })
		rows = append(rows, ganttRow{key: key, bars: bs})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].bars[0].Order.StartDate, rows[j].bars[0].Order.StartDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return rows[i].key.String() < rows[j].key.String()
	})
	return rows
}

func (gc *GanttChart) interval() (time.Duration, string) {
	days := int(gc.EndTime.Sub(gc.StartTime) / day)
	switch {
	case days <= 30:
		return day, "Jan 2"
	case days <= 180:
		return 7 * day, "Jan 2"
	default:
		return 30 * day, "Jan 2006"
	}
}

func (gc *GanttChart) drawTimeAxis(svg *strings.Builder) {
	interval, layout := gc.interval()
	for t := gc.StartTime; t.Before(gc.EndTime); t = t.Add(interval) {
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
			gc.x(t), gc.Height-gc.MarginBottom+15, t.Format(layout))
	}
	fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		gc.MarginLeft, gc.Height-gc.MarginBottom, gc.Width-gc.MarginRight, gc.Height-gc.MarginBottom)
}

func (gc *GanttChart) drawTimeGrid(svg *strings.Builder, numRows int) {
	interval, _ := gc.interval()
	bottom := gc.MarginTop + numRows*gc.RowHeight
	for t := gc.StartTime; t.Before(gc.EndTime); t = t.Add(interval) {
		x := gc.x(t)
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`, x, gc.MarginTop, x, bottom)
	}
	if !gc.RunDate.IsZero() && !gc.RunDate.Before(gc.StartTime) && gc.RunDate.Before(gc.EndTime) {
		x := gc.x(gc.RunDate)
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="run-date"/>`, x, gc.MarginTop, x, bottom)
	}
}

func (gc *GanttChart) drawRows(svg *strings.Builder, rows []ganttRow) {
	for i, row := range rows {
		y := gc.MarginTop + i*gc.RowHeight
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="key-label" text-anchor="end">%s</text>`,
			gc.MarginLeft-15, y+gc.RowHeight/2+4, html.EscapeString(row.key.String()))
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			gc.MarginLeft, y+gc.RowHeight, gc.Width-gc.MarginRight, y+gc.RowHeight)
		for _, bar := range row.bars {
			gc.drawBar(svg, bar, y)
		}
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int) {
	o := bar.Order
	class := "order-bar"
	if o.Firmed {
		class = "order-bar firmed"
	}
	barHeight := gc.RowHeight - 4
	barY := rowY + 2
	fmt.Fprintf(svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="%s">`,
		bar.X, barY, bar.Width, barHeight, bar.Color, class)
	fmt.Fprintf(svg, `<title>%s</title></rect>`, html.EscapeString(fmt.Sprintf("%s %s qty %d start %s due %s",
		o.ID, o.OrderType, o.Quantity, o.StartDate.Format(dateLayout), o.DueDate.Format(dateLayout))))
	if bar.Width > 40 {
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="order-text" text-anchor="middle">%d</text>`,
			bar.X+bar.Width/2, barY+barHeight/2+3, o.Quantity)
	}
}

func (gc *GanttChart) drawLegend(svg *strings.Builder) {
	legendX := gc.Width - gc.MarginRight - 200
	legendY := 40
	items := []struct {
		color string
		label string
	}{
		{"#2196F3", "Purchase"},
		{"#4CAF50", "Make"},
		{"#9C27B0", "Transfer"},
		{"#FF9800", "Needs confirmation"},
	}
	fmt.Fprintf(svg, `<rect x="%d" y="%d" width="180" height="%d" fill="white" stroke="#ccc" stroke-width="1"/>`,
		legendX, legendY, 20+len(items)*12)
	for i, item := range items {
		itemY := legendY + 8 + i*12
		fmt.Fprintf(svg, `<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`, legendX+10, itemY, item.color)
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="time-label">%s</text>`, legendX+30, itemY+7, item.label)
	}
}

// getBarColor colors by order type; orders waiting on planner confirmation stand out
func (gc *GanttChart) getBarColor(o entities.PlannedOrder) string {
	if o.RequiresConfirmation {
		return "#FF9800"
	}
	switch o.OrderType {
	case entities.Purchase:
		return "#2196F3"
	case entities.Make:
		return "#4CAF50"
	case entities.Transfer:
		return "#9C27B0"
	default:
		return "#9E9E9E"
	}
}

func (gc *GanttChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="%d" height="%d" fill="white"/>`+
		`<text x="%d" y="%d" font-family="Arial, sans-serif" font-size="16" fill="#666" text-anchor="middle">No Planned Orders</text>`+
		`</svg>`, gc.Width, gc.Height, gc.Width, gc.Height, gc.Width/2, gc.Height/2)
}
