package render

import (
	"bytes"
	"html/template"
	"math"
)

var fragments = template.Must(template.New("fragments").Funcs(template.FuncMap{
	"currency": Currency,
	"compact":  CompactCurrency,
	"team":     TeamName,
	"inc":      func(i int) int { return i + 1 },
}).Parse(`
{{define "metrics"}}<section class="metrics" data-panel="{{.Key}}">
<h2>{{.Label}}</h2>
<dl>
<dt>Total de vendas</dt><dd class="total">{{currency .Total}}{{with .TotalChange}}{{if .Visible}} <span class="{{if .Positive}}positive{{else}}negative{{end}}">{{.Text}}</span>{{end}}{{end}}</dd>
<dt>Número de vendas</dt><dd class="count">{{.Count}}{{with .CountChange}}{{if .Visible}} <span class="{{if .Positive}}positive{{else}}negative{{end}}">{{.Text}}</span>{{end}}{{end}}</dd>
<dt>Ticket médio</dt><dd class="average">{{currency .Average}}{{with .AverageChange}}{{if .Visible}} <span class="{{if .Positive}}positive{{else}}negative{{end}}">{{.Text}}</span>{{end}}{{end}}</dd>
<dt>Meta</dt><dd class="goal">{{currency .Goal}}</dd>
</dl>
<div class="progress" data-color="{{.Color}}" data-value="{{printf "%.1f" .Progress}}"><span>{{printf "%.1f" .Percent}}%</span></div>
{{with .Highlights}}{{if .LargestSale}}<p class="highlight">Maior venda: {{currency .LargestSale}}{{with .LargestSaleSeller}} · {{.}}{{end}}{{with .LargestSaleCustomer}} · {{.}}{{end}}</p>{{end}}
{{with .TopSeller}}<p class="highlight">Destaque: {{.}}</p>{{end}}{{with .TopBranch}}<p class="highlight">Unidade destaque: {{.}}</p>{{end}}{{end}}
</section>{{end}}

{{define "ranking"}}<ol class="ranking" start="{{inc .Offset}}">
{{range .Entries}}<li><span class="nome">{{.Name}}</span>{{with .Branch}} <small>{{.}}</small>{{end}} <span class="total">{{currency .Total}}</span>{{with .Change}}{{if .Visible}} <span class="{{if .Positive}}positive{{else}}negative{{end}}">{{.Text}}</span>{{end}}{{end}}</li>
{{else}}<li class="empty">Nenhuma venda no período</li>
{{end}}</ol>{{if gt .Pages 1}}<p class="pager">{{inc .Page}}/{{.Pages}}</p>{{end}}{{end}}

{{define "panels"}}<ul class="unit-page">{{range .}}<li data-panel="{{.}}">{{.}}</li>{{end}}</ul>{{end}}

{{define "podium"}}<div class="podium">
<ol class="sellers">{{range .Sellers}}<li class="pos-{{.Position}}"><span class="nome">{{.Name}}</span> <small>{{team .Branch}}</small> <span class="total">{{currency .Total}}</span></li>{{end}}</ol>
<ol class="units">{{range .Units}}<li class="pos-{{.Position}}"><span class="nome">{{team .Branch}}</span> <span class="total">{{currency .Total}}</span></li>{{end}}</ol>
</div>{{end}}
`))

func executeFragment(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// progress caps an attainment percentage for bar and doughnut widgets.
func progress(pct float64) float64 {
	return math.Max(0, math.Min(pct, 100))
}
