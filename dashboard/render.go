package dashboard

import (
	"io"
	"math"
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/pkg/errors"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrEmptyView is returned instead of drawing a chart without data.
var ErrEmptyView = errors.New("no results to render")

// ImageFormat is an output format for rendered charts.
type ImageFormat string

const (
	ImageFormatPNG ImageFormat = "png"
	ImageFormatSVG ImageFormat = "svg"
)

func (f ImageFormat) Validate() error {
	switch f {
	case ImageFormatPNG, ImageFormatSVG:
		return nil
	default:
		return errors.Errorf("invalid image format '%s'", f)
	}
}

// ContentType returns the MIME type of the format.
func (f ImageFormat) ContentType() string {
	if f == ImageFormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f ImageFormat) provider() chart.RendererProvider {
	if f == ImageFormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

// RenderOptions control the size and title of rendered charts.
type RenderOptions struct {
	Format ImageFormat
	Width  int
	Height int
	Title  string
}

func (o *RenderOptions) validate() error {
	if o.Format == "" {
		o.Format = ImageFormatPNG
	}
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Height <= 0 {
		o.Height = 512
	}
	return o.Format.Validate()
}

func scoreFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return FormatScore(f)
	}
	return ""
}

// RenderLineChart draws one line per branch over time.
func RenderLineChart(w io.Writer, data LineChart, opts RenderOptions) error {
	if err := opts.validate(); err != nil {
		return errors.WithStack(err)
	}
	if data.IsEmpty() {
		return ErrEmptyView
	}

	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	series := []chart.Series{}
	for _, s := range data.Series {
		if len(s.Points) == 0 {
			continue
		}

		xs := make([]time.Time, len(s.Points))
		ys := make([]float64, len(s.Points))
		for i, p := range s.Points {
			xs[i] = p.Timestamp
			ys[i] = p.Metric
			minX = math.Min(minX, chart.TimeToFloat64(p.Timestamp))
			maxX = math.Max(maxX, chart.TimeToFloat64(p.Timestamp))
			minY = math.Min(minY, p.Metric)
			maxY = math.Max(maxY, p.Metric)
		}
		// go-chart cannot draw a series with a single x value.
		if len(xs) == 1 {
			xs = append(xs, xs[0].Add(time.Hour))
			ys = append(ys, ys[0])
		}

		color := drawing.ColorFromHex(s.Color)
		series = append(series, chart.TimeSeries{
			Name:    s.Branch,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    5,
			},
		})
	}

	if maxX <= minX {
		maxX = minX + float64(24*time.Hour)
	}
	padY := (maxY - minY) * 0.1
	if padY == 0 {
		padY = math.Max(math.Abs(maxY)*0.1, 1)
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat(perffarm.ShortDateFormat),
			Range:          &chart.ContinuousRange{Min: minX, Max: maxX},
		},
		YAxis: chart.YAxis{
			Name:           "Performance Score",
			ValueFormatter: scoreFormatter,
			Range:          &chart.ContinuousRange{Min: minY - padY, Max: maxY + padY},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return errors.Wrap(graph.Render(opts.Format.provider(), w), "problem rendering line chart")
}

// RenderComparisonChart draws a bar per plant. Plants without data are
// omitted; if none has data ErrEmptyView is returned.
func RenderComparisonChart(w io.Writer, data ComparisonChart, opts RenderOptions) error {
	if err := opts.validate(); err != nil {
		return errors.WithStack(err)
	}
	if !data.HasData() {
		return ErrEmptyView
	}

	maxY := 0.0
	bars := []chart.Value{}
	for _, b := range data.Bars {
		if !b.HasData {
			continue
		}
		color := drawing.ColorFromHex(b.Color)
		bars = append(bars, chart.Value{
			Label: b.Plant + " (" + b.Branch + ")",
			Value: b.Metric,
			Style: chart.Style{
				FillColor:   color.WithAlpha(153),
				StrokeColor: color,
				StrokeWidth: 1,
			},
		})
		maxY = math.Max(maxY, b.Metric)
	}
	if maxY <= 0 {
		maxY = 1
	}

	graph := chart.BarChart{
		Title:    opts.Title,
		Width:    opts.Width,
		Height:   opts.Height,
		BarWidth: opts.Width / (2 * (len(bars) + 1)),
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Name:           "Performance Score",
			ValueFormatter: scoreFormatter,
			Range:          &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
		},
		Bars: bars,
	}

	return errors.Wrap(graph.Render(opts.Format.provider(), w), "problem rendering comparison chart")
}
