package profile

import (
	"html/template"
	"io"
	"strconv"
)

type htmlRow struct {
	Name     string
	Anchor   string
	Primary  bool
	TotalPct string
	SelfPct  string
	Total    string
	Self     string
	Calls    string
}

type htmlBlock struct {
	Rows []htmlRow
}

var graphTemplate = template.Must(template.New("graph").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Profile: {{.Root}}</title>
<style>
body { font-family: monospace; }
table { border-collapse: collapse; }
td, th { padding: 2px 8px; text-align: right; }
td.name { text-align: left; }
tr.primary { font-weight: bold; background: #eef; }
tbody { border-bottom: 1px solid #999; }
</style>
</head>
<body>
<h1>Profile: {{.Root}}</h1>
<p>Total: {{.Total}} ms</p>
<table>
<thead><tr><th>%total</th><th>%self</th><th>total</th><th>self</th><th>calls</th><th>name</th></tr></thead>
{{range .Blocks}}<tbody>
{{range .Rows}}<tr{{if .Primary}} class="primary" id="{{.Anchor}}"{{end}}><td>{{.TotalPct}}</td><td>{{.SelfPct}}</td><td>{{.Total}}</td><td>{{.Self}}</td><td>{{.Calls}}</td><td class="name">{{if .Primary}}{{.Name}}{{else}}<a href="#{{.Anchor}}">{{.Name}}</a>{{end}}</td></tr>
{{end}}</tbody>
{{end}}</table>
</body>
</html>
`))

// RenderGraphHTML writes the graph report as an HTML page with links between
// the blocks of callers and callees
func RenderGraphHTML(w io.Writer, r *Report) error {
	anchors := make(map[string]string)
	nodes := r.Nodes()
	for i, n := range nodes {
		anchors[n.Function] = "fn" + itoa(i)
	}

	var blocks []htmlBlock
	for _, n := range nodes {
		var rows []htmlRow
		for _, e := range r.Callers(n.Function) {
			rows = append(rows, htmlRow{
				Name:   e.Caller,
				Anchor: anchors[e.Caller],
				Total:  fmtMs(ms(e.Total)),
				Self:   fmtMs(ms(e.Self)),
				Calls:  itoa(int(e.Calls)) + "/" + itoa(int(n.Calls)),
			})
		}
		rows = append(rows, htmlRow{
			Name:     n.Function,
			Anchor:   anchors[n.Function],
			Primary:  true,
			TotalPct: fmtPct(percent(n.Total, r.Total())),
			SelfPct:  fmtPct(percent(n.Self, r.Total())),
			Total:    fmtMs(ms(n.Total)),
			Self:     fmtMs(ms(n.Self)),
			Calls:    itoa(int(n.Calls)),
		})
		for _, e := range r.Callees(n.Function) {
			rows = append(rows, htmlRow{
				Name:   e.Callee,
				Anchor: anchors[e.Callee],
				Total:  fmtMs(ms(e.Total)),
				Self:   fmtMs(ms(e.Self)),
				Calls:  itoa(int(e.Calls)),
			})
		}
		blocks = append(blocks, htmlBlock{Rows: rows})
	}

	return graphTemplate.Execute(w, struct {
		Root   string
		Total  string
		Blocks []htmlBlock
	}{
		Root:   r.Root,
		Total:  fmtMs(ms(r.Total())),
		Blocks: blocks,
	})
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func fmtMs(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func fmtPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}
