package plotsink

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LiveHandler renders the most recent bins of a Sink as an HTML line
// chart, for a debugging-only endpoint, the same way the teacher's
// echarts_handlers.go renders grid/track scatter plots on demand rather
// than pushing updates to a persistent websocket.
type LiveHandler struct {
	sink  *Sink
	id    string
	title string

	recent []Bin
	maxLen int
}

// NewLiveHandler builds a handler for sink that retains up to maxLen
// most recent bins for rendering. It does not subscribe to sink itself;
// the caller subscribes and passes the Subscriber to Consume.
func NewLiveHandler(sink *Sink, id, title string, maxLen int) *LiveHandler {
	if maxLen <= 0 {
		maxLen = 500
	}
	return &LiveHandler{sink: sink, id: id, title: title, maxLen: maxLen}
}

// Consume drains the subscriber's channel into the handler's ring
// buffer. Run this in its own goroutine alongside Sink.Run.
func (h *LiveHandler) Consume(sub *Subscriber) {
	for b := range sub.Chan() {
		h.recent = append(h.recent, b)
		if len(h.recent) > h.maxLen {
			h.recent = h.recent[len(h.recent)-h.maxLen:]
		}
	}
}

// ServeHTTP renders the current buffer as a go-echarts line chart.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	xs := make([]string, 0, len(h.recent))
	ys := make([]opts.LineData, 0, len(h.recent))
	for i, b := range h.recent {
		if b.Break {
			ys = append(ys, opts.LineData{Value: nil})
		} else {
			ys = append(ys, opts.LineData{Value: b.Y})
		}
		xs = append(xs, fmt.Sprintf("%d", i))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: h.title}))
	line.SetXAxis(xs).AddSeries(h.id, ys)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
