// Package templates renders the HTML pages of the cleaning service.
//
// Components are plain templ.ComponentFunc values so the package builds
// without the templ code generator.
package templates

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/apcclean/internal/core"
)

// UploadDefaults pre-fills the upload form.
type UploadDefaults struct {
	Encoding      string
	CostThreshold float64
	OnCostError   string
	ExportEnabled bool
}

// ReportData is everything the report page shows for one cleaning run.
type ReportData struct {
	FileName   string
	RunID      string
	Before     core.Stats
	After      core.Stats
	FailedRows []core.FailedRow
	Capped     int
	CapValue   float64
	Duration   time.Duration
	Exported   int64
	ExportedTo string
}

const style = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:60rem;color:#1f2933}
table{border-collapse:collapse;margin:1rem 0}td,th{border:1px solid #cbd2d9;padding:.25rem .6rem;text-align:left}
th{background:#f5f7fa}.num{text-align:right}.error{border-left:4px solid #d64545;background:#fde8e8;padding:.75rem 1rem}
.code{color:#7b8794;font-size:.85em}label{display:block;margin:.5rem 0}`

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body><h1>%s</h1>`,
			templ.EscapeString(title), style, templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// UploadPage is the form that posts a file to the report endpoint.
func UploadPage(d UploadDefaults) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		threshold := ""
		if d.CostThreshold > 0 {
			threshold = strconv.FormatFloat(d.CostThreshold, 'f', -1, 64)
		}
		_, err := fmt.Fprintf(w, `<form method="post" action="/report" enctype="multipart/form-data">
<label>CSV file <input type="file" name="file" accept=".csv,text/csv" required></label>
<label>Encoding <input type="text" name="encoding" value="%s"></label>
<label>Cost threshold <input type="number" step="any" min="0" name="threshold" value="%s" placeholder="0 disables capping"></label>
<label>Malformed costs <select name="on_cost_error">%s</select></label>
%s<button type="submit">Clean</button>
</form>`,
			templ.EscapeString(d.Encoding),
			templ.EscapeString(threshold),
			policyOptions(d.OnCostError),
			exportField(d.ExportEnabled),
		)
		return err
	})
	return Layout("APC cleaner", body)
}

func policyOptions(selected string) string {
	out := ""
	for _, p := range []core.CostErrorPolicy{core.CostErrorAbort, core.CostErrorSkip, core.CostErrorKeep} {
		sel := ""
		if string(p) == selected {
			sel = " selected"
		}
		out += fmt.Sprintf(`<option value="%s"%s>%s</option>`, p, sel, p)
	}
	return out
}

func exportField(enabled bool) string {
	if !enabled {
		return ""
	}
	return `<label><input type="checkbox" name="export" value="true"> Export to database</label>` + "\n"
}

// Report renders the outcome of a cleaning run.
func Report(d ReportData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<p>File <strong>%s</strong>, run <code>%s</code>, %d ms.</p>`,
			templ.EscapeString(d.FileName), templ.EscapeString(d.RunID), d.Duration.Milliseconds())

		if d.ExportedTo != "" {
			fmt.Fprintf(w, `<p>Exported %d rows to <code>%s</code>.</p>`, d.Exported, templ.EscapeString(d.ExportedTo))
		}
		if !math.IsNaN(d.CapValue) {
			fmt.Fprintf(w, `<p>%d costs capped at %s.</p>`, d.Capped, strconv.FormatFloat(d.CapValue, 'f', 2, 64))
		}

		io.WriteString(w, `<h2>Before</h2>`)
		if err := StatsTable(d.Before).Render(ctx, w); err != nil {
			return err
		}
		io.WriteString(w, `<h2>After</h2>`)
		if err := StatsTable(d.After).Render(ctx, w); err != nil {
			return err
		}

		if len(d.FailedRows) > 0 {
			fmt.Fprintf(w, `<h2>Failed rows (%d)</h2><table><tr><th>Line</th><th>Column</th><th>Value</th><th>Reason</th></tr>`, len(d.FailedRows))
			for _, f := range d.FailedRows {
				fmt.Fprintf(w, `<tr><td class="num">%d</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					f.Line, templ.EscapeString(f.Column), templ.EscapeString(f.Value), templ.EscapeString(f.Reason))
			}
			io.WriteString(w, `</table>`)
		}

		_, err := io.WriteString(w, `<p><a href="/">Clean another file</a></p>`)
		return err
	})
	return Layout("Cleaning report", body)
}

// StatsTable renders the inspector report as a table: a caption with the
// shape line and one row per column.
func StatsTable(s core.Stats) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		lines := s.Lines()
		fmt.Fprintf(w, `<table><caption>%s</caption><tr><th>Column</th><th>Empty rows</th></tr>`, templ.EscapeString(lines[0]))
		for _, n := range s.Nulls {
			fmt.Fprintf(w, `<tr><td>%s</td><td class="num">%d</td></tr>`, templ.EscapeString(n.Column), n.Nulls)
		}
		_, err := io.WriteString(w, `</table>`)
		return err
	})
}

// ErrorAlert renders a user-facing error message.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="error" role="alert"><p><strong>%s</strong></p><p>%s</p><p class="code">Code: %s</p></div>`,
			templ.EscapeString(message), templ.EscapeString(action), templ.EscapeString(code))
		return err
	})
}

// ErrorPage is ErrorAlert inside the page layout.
func ErrorPage(message, action, code string) templ.Component {
	return Layout("Cleaning failed", ErrorAlert(message, action, code))
}
