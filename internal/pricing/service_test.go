package pricing_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/pricing-engine/internal/config"
	"github.com/atmx/pricing-engine/internal/pricing"
)

func newTestRouter(t *testing.T) (*pricing.Service, chi.Router) {
	t.Helper()
	svc := pricing.NewService(config.SimulationConfig{
		MaxPaths:     100000,
		MaxSteps:     1000,
		SampleLimit:  3,
		Workers:      2,
		MaxTreeSteps: 500,
	}, nil)

	r := chi.NewRouter()
	r.Get("/", svc.Index)
	r.Post("/", svc.Index)
	r.Post("/api/v1/price", svc.PriceMonteCarlo)
	r.Post("/api/v1/price/binomial", svc.PriceBinomial)
	return svc, r
}

func postJSON(t *testing.T, r chi.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type apiError struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Position *int   `json:"position"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var e apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

func monteCarloBody(seed int64) map[string]any {
	return map[string]any{
		"spot":       100,
		"maturity":   1,
		"rate":       0.05,
		"volatility": 0.2,
		"steps":      20,
		"paths":      2000,
		"payoff":     "max(price - 100, 0)",
		"seed":       seed,
	}
}

func TestPriceMonteCarlo_OK(t *testing.T) {
	_, r := newTestRouter(t)

	rec := postJSON(t, r, "/api/v1/price", monteCarloBody(42))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp pricing.PriceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.RunID == "" {
		t.Error("run_id is empty")
	}
	if resp.Seed != 42 {
		t.Errorf("seed = %d, want the echoed 42", resp.Seed)
	}
	if resp.Workers != 2 {
		t.Errorf("workers = %d, want the configured 2", resp.Workers)
	}
	if resp.Paths != 2000 || resp.Steps != 20 {
		t.Errorf("paths/steps = %d/%d, want 2000/20", resp.Paths, resp.Steps)
	}
	if resp.Price.IsNegative() || resp.Price.IsZero() {
		t.Errorf("price = %s, want positive for an at-the-money call", resp.Price)
	}
	if len(resp.SampleTrajectories) != 3 || len(resp.SamplePayoffs) != 3 {
		t.Errorf("samples = %d/%d, want the configured limit 3/3",
			len(resp.SampleTrajectories), len(resp.SamplePayoffs))
	}
	for i, traj := range resp.SampleTrajectories {
		if len(traj) != 21 {
			t.Errorf("sample %d has length %d, want steps+1 = 21", i, len(traj))
		}
	}
}

func TestPriceMonteCarlo_SeededRunsReplay(t *testing.T) {
	_, r := newTestRouter(t)

	var prices [2]string
	for i := range prices {
		rec := postJSON(t, r, "/api/v1/price", monteCarloBody(7))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var resp pricing.PriceResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		prices[i] = resp.Price.String()
	}
	if prices[0] != prices[1] {
		t.Errorf("seeded replay diverged: %s vs %s", prices[0], prices[1])
	}
}

func TestPriceMonteCarlo_SeedDrawnWhenAbsent(t *testing.T) {
	_, r := newTestRouter(t)

	body := monteCarloBody(0)
	delete(body, "seed")

	rec := postJSON(t, r, "/api/v1/price", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp pricing.PriceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Seed == 0 {
		t.Error("seed = 0, want a server-drawn seed echoed back")
	}
}

func TestPriceMonteCarlo_ParseError(t *testing.T) {
	_, r := newTestRouter(t)

	body := monteCarloBody(1)
	body["payoff"] = "max(price - 100, spot)"

	rec := postJSON(t, r, "/api/v1/price", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	e := decodeError(t, rec)
	if e.Kind != "parse_error" {
		t.Errorf("kind = %q, want parse_error", e.Kind)
	}
	if e.Position == nil {
		t.Fatal("position missing from parse error")
	}
	if *e.Position != 17 {
		t.Errorf("position = %d, want 17 (the offset of the unknown identifier)", *e.Position)
	}
}

func TestPriceMonteCarlo_EvalError(t *testing.T) {
	_, r := newTestRouter(t)

	body := monteCarloBody(1)
	body["payoff"] = "log(price - 1000000)"

	rec := postJSON(t, r, "/api/v1/price", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Kind != "eval_error" {
		t.Errorf("kind = %q, want eval_error", e.Kind)
	}
}

func TestPriceMonteCarlo_InvalidParameter(t *testing.T) {
	_, r := newTestRouter(t)

	body := monteCarloBody(1)
	body["spot"] = 0

	rec := postJSON(t, r, "/api/v1/price", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Kind != "invalid_parameter" {
		t.Errorf("kind = %q, want invalid_parameter", e.Kind)
	}
}

func TestPriceMonteCarlo_PathsOverMaximum(t *testing.T) {
	_, r := newTestRouter(t)

	body := monteCarloBody(1)
	body["paths"] = 100001

	rec := postJSON(t, r, "/api/v1/price", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	e := decodeError(t, rec)
	if e.Kind != "invalid_parameter" {
		t.Errorf("kind = %q, want invalid_parameter", e.Kind)
	}
	if !strings.Contains(e.Error, "paths") {
		t.Errorf("error %q should name the paths field", e.Error)
	}
}

func TestPriceMonteCarlo_MalformedBody(t *testing.T) {
	_, r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/price", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func binomialBody() map[string]any {
	return map[string]any{
		"spot":       100,
		"strike":     100,
		"maturity":   1,
		"rate":       0.05,
		"volatility": 0.2,
		"steps":      200,
		"type":       "call",
	}
}

func TestPriceBinomial_OK(t *testing.T) {
	_, r := newTestRouter(t)

	rec := postJSON(t, r, "/api/v1/price/binomial", binomialBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp pricing.BinomialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID == "" {
		t.Error("run_id is empty")
	}
	if resp.Price.IsNegative() || resp.Price.IsZero() {
		t.Errorf("price = %s, want positive", resp.Price)
	}
	if resp.AssetPrices != nil || resp.OptionValues != nil {
		t.Error("lattices present although include_lattice was not set")
	}
}

func TestPriceBinomial_IncludeLattice(t *testing.T) {
	_, r := newTestRouter(t)

	body := binomialBody()
	body["steps"] = 10
	body["include_lattice"] = true

	rec := postJSON(t, r, "/api/v1/price/binomial", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp pricing.BinomialResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.AssetPrices) != 11 || len(resp.OptionValues) != 11 {
		t.Errorf("lattice levels = %d/%d, want 11/11",
			len(resp.AssetPrices), len(resp.OptionValues))
	}
}

func TestPriceBinomial_Arbitrage(t *testing.T) {
	_, r := newTestRouter(t)

	body := binomialBody()
	body["rate"] = 0.5
	body["volatility"] = 0.01
	body["steps"] = 1

	rec := postJSON(t, r, "/api/v1/price/binomial", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Kind != "invalid_parameter" {
		t.Errorf("kind = %q, want invalid_parameter", e.Kind)
	}
}

func TestPriceBinomial_StepsOverMaximum(t *testing.T) {
	_, r := newTestRouter(t)

	body := binomialBody()
	body["steps"] = 501

	rec := postJSON(t, r, "/api/v1/price/binomial", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Kind != "invalid_parameter" {
		t.Errorf("kind = %q, want invalid_parameter", e.Kind)
	}
}

func TestIndex_GetRendersForm(t *testing.T) {
	_, r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	html := rec.Body.String()
	for _, want := range []string{"<form", `name="payoff"`, `name="spot"`, "max(price - 100, 0)"} {
		if !strings.Contains(html, want) {
			t.Errorf("form page missing %q", want)
		}
	}
}

func TestIndex_PostRunsSimulation(t *testing.T) {
	_, r := newTestRouter(t)

	form := url.Values{
		"spot":       {"100"},
		"maturity":   {"1"},
		"rate":       {"0.05"},
		"volatility": {"0.2"},
		"steps":      {"20"},
		"paths":      {"1000"},
		"seed":       {"42"},
		"payoff":     {"max(price - 100, 0)"},
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	html := rec.Body.String()
	if !strings.Contains(html, "Estimated option price") {
		t.Errorf("result message missing from page:\n%s", html)
	}
	if strings.Contains(html, `class="result error"`) {
		t.Error("page reports an error for valid inputs")
	}
}

func TestIndex_PostRejectsBadInput(t *testing.T) {
	_, r := newTestRouter(t)

	form := url.Values{
		"spot":       {"abc"},
		"maturity":   {"1"},
		"rate":       {"0.05"},
		"volatility": {"0.2"},
		"steps":      {"20"},
		"paths":      {"1000"},
		"payoff":     {"max(price - 100, 0)"},
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (errors render inline)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "spot must be a number") {
		t.Error("page missing the field error message")
	}
}
