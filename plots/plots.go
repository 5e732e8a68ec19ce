// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package plots renders the benchmark comparison figure: one latency line
// per attention variant, with error bars, on log-log axes, written as a
// standalone HTML page that loads Plotly from its CDN.
package plots

import (
	"encoding/base64"
	"encoding/json"
	"html/template"
	"io"
	"os"

	grob "github.com/MetalBlueberry/go-plotly/generated/v2.34.0/graph_objects"
	ptypes "github.com/MetalBlueberry/go-plotly/pkg/types"
	"github.com/janpfeifer/gonb/gonbui/plotly"
	"github.com/pkg/errors"
)

// Series is one line in the latency figure: per-point mean runtimes (Y) with
// their standard deviations (YErr) over the swept x-axis values.
type Series struct {
	Name string
	X    []float64
	Y    []float64
	YErr []float64
}

// LatencyFigure builds the log-log scatter figure comparing the given
// latency series, with visible per-point error bars.
func LatencyFigure(title string, series ...Series) *grob.Fig {
	fig := &grob.Fig{
		Layout: &grob.Layout{
			Title: &grob.LayoutTitle{
				Text: ptypes.S(title),
			},
			Xaxis: &grob.LayoutXaxis{
				Title:    &grob.LayoutXaxisTitle{Text: ptypes.S("Sequence Length")},
				Showgrid: ptypes.B(true),
				Type:     grob.LayoutXaxisTypeLog,
			},
			Yaxis: &grob.LayoutYaxis{
				Title:    &grob.LayoutYaxisTitle{Text: ptypes.S("Runtime (s)")},
				Showgrid: ptypes.B(true),
				Type:     grob.LayoutYaxisTypeLog,
			},
		},
	}
	for _, s := range series {
		fig.Data = append(fig.Data, &grob.Scatter{
			Name: ptypes.S(s.Name),
			Line: &grob.ScatterLine{
				Shape: grob.ScatterLineShapeLinear,
			},
			Mode: "lines+markers",
			X:    ptypes.DataArray(s.X),
			Y:    ptypes.DataArray(s.Y),
			ErrorY: &grob.ScatterErrorY{
				Type:    grob.ScatterErrorYTypeData,
				Array:   ptypes.DataArray(s.YErr),
				Visible: ptypes.B(true),
			},
		})
	}
	return fig
}

var (
	standaloneHTML = `<!DOCTYPE html>
<html>
	<head>
		<meta charset="utf-8">
		<script src="{{ .CDN }}"></script>
	</head>
	<body>
{{- range $i, $f := .Figures }}
		<div id="plot{{ $i }}"></div>
{{- end }}
	<script>
{{- range $i, $f := .Figures }}
		Plotly.newPlot('plot{{ $i }}', JSON.parse(atob('{{ $f }}')));
{{- end }}
	</script>
	</body>
</html>`
	standaloneHTMLTmpl = template.Must(template.New("plotly").Parse(standaloneHTML))
)

// WriteHTML renders the Plotly figures to a standalone HTML page.
// Each figure is embedded as base64-encoded JSON and decoded client-side.
func WriteHTML(w io.Writer, figs ...*grob.Fig) error {
	encoded := make([]string, 0, len(figs))
	for _, fig := range figs {
		figAsJSON, err := json.Marshal(fig)
		if err != nil {
			return errors.Wrap(err, "failed to marshal plotly figure")
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(figAsJSON))
	}
	data := &struct {
		CDN     string
		Figures []string
	}{
		CDN:     plotly.PlotlySrc,
		Figures: encoded,
	}
	if err := standaloneHTMLTmpl.Execute(w, data); err != nil {
		return errors.Wrap(err, "failed to render plotly page")
	}
	return nil
}

// WriteHTMLFile renders the Plotly figures to a standalone HTML file.
func WriteHTMLFile(fileName string, figs ...*grob.Fig) error {
	f, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %q", fileName)
	}
	defer func() { _ = f.Close() }()
	return WriteHTML(f, figs...)
}
