// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package plots

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	grob "github.com/MetalBlueberry/go-plotly/generated/v2.34.0/graph_objects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries() []Series {
	return []Series{
		{
			Name: "Vanilla Attention",
			X:    []float64{8192, 16384},
			Y:    []float64{0.01, 0.04},
			YErr: []float64{0.001, 0.002},
		},
		{
			Name: "Dilated Attention",
			X:    []float64{8192, 16384, 32768},
			Y:    []float64{0.01, 0.02, 0.03},
			YErr: []float64{0.001, 0.001, 0.002},
		},
	}
}

func TestLatencyFigure(t *testing.T) {
	fig := LatencyFigure("Attention Benchmark", testSeries()...)
	require.Len(t, fig.Data, 2)
	assert.Equal(t, grob.LayoutXaxisTypeLog, fig.Layout.Xaxis.Type)
	assert.Equal(t, grob.LayoutYaxisTypeLog, fig.Layout.Yaxis.Type)

	// Figures must serialize: that is how they reach the HTML page.
	asJSON, err := json.Marshal(fig)
	require.NoError(t, err)
	assert.Contains(t, string(asJSON), "Vanilla Attention")
	assert.Contains(t, string(asJSON), "Dilated Attention")
	assert.Contains(t, string(asJSON), "error_y")
}

func TestWriteHTML(t *testing.T) {
	fig := LatencyFigure("Attention Benchmark", testSeries()...)
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, fig))

	page := buf.String()
	assert.Contains(t, page, "<script src=")
	assert.Contains(t, page, "Plotly.newPlot('plot0'")
}

func TestWriteHTMLFile(t *testing.T) {
	fig := LatencyFigure("Attention Benchmark", testSeries()...)
	fileName := filepath.Join(t.TempDir(), "benchmark.html")
	require.NoError(t, WriteHTMLFile(fileName, fig))
	assert.FileExists(t, fileName)
}
