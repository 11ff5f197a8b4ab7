// Package pricing — browser form for interactive pricing.
package pricing

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/atmx/pricing-engine/internal/payoff"
)

// formFields are the text inputs, rendered in this order.
var formFields = []struct {
	Name  string
	Label string
}{
	{"spot", "Spot price"},
	{"maturity", "Maturity (years)"},
	{"rate", "Risk-free rate"},
	{"volatility", "Volatility"},
	{"steps", "Steps per path"},
	{"paths", "Number of paths"},
	{"seed", "Seed (blank = random)"},
}

var formDefaults = map[string]string{
	"spot":       "100",
	"maturity":   "1",
	"rate":       "0.05",
	"volatility": "0.2",
	"steps":      "50",
	"paths":      "5000",
	"seed":       "",
	"payoff":     "max(price - 100, 0)",
}

type formView struct {
	Fields []struct {
		Name  string
		Label string
	}
	Values          map[string]string
	Functions       string
	Message         string
	IsError         bool
	Result          *PriceResponse
	SamplePathsJSON string
}

// Index handles GET and POST / — the interactive pricing form.
func (s *Service) Index(w http.ResponseWriter, r *http.Request) {
	view := formView{
		Fields: formFields,
		Values: map[string]string{},
	}
	for name, def := range formDefaults {
		view.Values[name] = def
	}

	funcs := payoff.Functions()
	sort.Strings(funcs)
	view.Functions = strings.Join(funcs, ", ")

	if r.Method == http.MethodPost {
		for name := range formDefaults {
			view.Values[name] = r.FormValue(name)
		}
		req, err := parseForm(r)
		if err != nil {
			view.Message = err.Error()
			view.IsError = true
		} else if resp, err := s.runMonteCarlo(req); err != nil {
			errResp, _ := classify(err)
			view.Message = errResp.Error
			view.IsError = true
		} else {
			view.Result = resp
			view.Message = "Estimated option price: " + resp.Price.String() +
				" (standard error " + resp.StandardError.String() + ")"
			if paths, err := json.MarshalIndent(resp.SampleTrajectories, "", "  "); err == nil {
				view.SamplePathsJSON = string(paths)
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, view); err != nil {
		writeError(w, "template render failed", http.StatusInternalServerError)
	}
}

func parseForm(r *http.Request) (PriceRequest, error) {
	var req PriceRequest

	asFloat := func(name string, dst *float64) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(name)), 64)
		if err != nil {
			return &formError{field: name, kind: "a number"}
		}
		*dst = v
		return nil
	}
	asInt := func(name string, dst *int) error {
		v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(name)))
		if err != nil {
			return &formError{field: name, kind: "an integer"}
		}
		*dst = v
		return nil
	}

	for _, parse := range []error{
		asFloat("spot", &req.Spot),
		asFloat("maturity", &req.Maturity),
		asFloat("rate", &req.Rate),
		asFloat("volatility", &req.Volatility),
		asInt("steps", &req.Steps),
		asInt("paths", &req.Paths),
	} {
		if parse != nil {
			return req, parse
		}
	}

	req.Payoff = strings.TrimSpace(r.FormValue("payoff"))
	if req.Payoff == "" {
		return req, &formError{field: "payoff", kind: "a payoff expression"}
	}

	if seedText := strings.TrimSpace(r.FormValue("seed")); seedText != "" {
		seed, err := strconv.ParseInt(seedText, 10, 64)
		if err != nil {
			return req, &formError{field: "seed", kind: "an integer"}
		}
		req.Seed = &seed
	}

	return req, nil
}

type formError struct {
	field string
	kind  string
}

func (e *formError) Error() string {
	return e.field + " must be " + e.kind
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>Monte Carlo Option Pricer</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 2rem auto; max-width: 800px; }
		label { display: block; margin-top: 0.5rem; }
		input, textarea { width: 100%; padding: 0.5rem; box-sizing: border-box; }
		.result { background: #f6f8fa; padding: 1rem; border-radius: 8px; margin-top: 1rem; }
		.error { color: #b00020; }
		.grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 0.75rem; }
		button { margin-top: 1rem; padding: 0.6rem 1.2rem; }
		code { background: #eef; padding: 0.1rem 0.3rem; border-radius: 4px; }
	</style>
</head>
<body>
	<h1>Monte Carlo Option Pricer</h1>
	<p>Provide model inputs and a payoff expression that references
	<code>price</code> (terminal) and <code>path</code> (full trajectory).
	Available functions: <code>{{.Functions}}</code>.</p>
	<form method="post">
		<div class="grid">
			{{$values := .Values}}
			{{range .Fields}}
			<label>{{.Label}}<input name="{{.Name}}" value="{{index $values .Name}}"></label>
			{{end}}
		</div>
		<label>Payoff expression
			<textarea name="payoff" rows="2" required>{{index .Values "payoff"}}</textarea>
		</label>
		<button type="submit">Run simulation</button>
	</form>
	{{if .Message}}
		<div class="result {{if .IsError}}error{{end}}">{{.Message}}</div>
	{{end}}
	{{if .Result}}
		<div class="result">
			<h3>Result</h3>
			<p><strong>Price:</strong> {{.Result.Price}} &plusmn; {{.Result.StandardError}}</p>
			<p><strong>Paths:</strong> {{.Result.Paths}} |
			   <strong>Steps:</strong> {{.Result.Steps}} |
			   <strong>Seed:</strong> {{.Result.Seed}} |
			   <strong>Elapsed:</strong> {{.Result.ElapsedMs}} ms</p>
			<p><strong>Sample payoffs:</strong> {{.Result.SamplePayoffs}}</p>
			<details>
				<summary>Show sample paths</summary>
				<pre>{{.SamplePathsJSON}}</pre>
			</details>
		</div>
	{{end}}
	<h2>API usage</h2>
	<p>Send a JSON POST to <code>/api/v1/price</code> with the same fields as the form:</p>
	<pre>{
  "spot": 100,
  "maturity": 1,
  "rate": 0.05,
  "volatility": 0.2,
  "steps": 50,
  "paths": 10000,
  "payoff": "max(price - 100, 0)"
}</pre>
</body>
</html>
`))
