package gbm

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/atmx/pricing-engine/internal/model"
)

func baseParams() model.SimulationParameters {
	return model.SimulationParameters{
		Spot:       100,
		Maturity:   1,
		Rate:       0.05,
		Volatility: 0.2,
		Steps:      50,
		Paths:      1,
	}
}

func TestGenerate_Shape(t *testing.T) {
	gen, err := New(baseParams())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	traj := gen.Generate(rand.New(rand.NewSource(1)))
	if len(traj) != 51 {
		t.Fatalf("trajectory length = %d, want 51", len(traj))
	}
	if traj[0] != 100 {
		t.Errorf("trajectory starts at %v, want the spot price 100", traj[0])
	}
	if traj.Terminal() != traj[50] {
		t.Errorf("Terminal() = %v, want last element %v", traj.Terminal(), traj[50])
	}
	for i, price := range traj {
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			t.Fatalf("trajectory[%d] = %v, prices must stay positive and finite", i, price)
		}
	}
}

func TestGenerate_ZeroVolatilityIsDeterministicDrift(t *testing.T) {
	p := baseParams()
	p.Volatility = 0

	gen, err := New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	traj := gen.Generate(rand.New(rand.NewSource(99)))

	// With sigma = 0 every step is pure drift: S(t) = S0 * exp(r*t).
	dt := p.Maturity / float64(p.Steps)
	for i, price := range traj {
		want := p.Spot * math.Exp(p.Rate*dt*float64(i))
		if math.Abs(price-want)/want > 1e-9 {
			t.Fatalf("trajectory[%d] = %v, want drift value %v", i, price, want)
		}
	}

	want := p.Spot * math.Exp(p.Rate*p.Maturity)
	if math.Abs(traj.Terminal()-want)/want > 1e-9 {
		t.Errorf("terminal = %v, want %v", traj.Terminal(), want)
	}
}

func TestGenerate_SeededReplay(t *testing.T) {
	gen, err := New(baseParams())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first := gen.Generate(rand.New(rand.NewSource(42)))
	second := gen.Generate(rand.New(rand.NewSource(42)))
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("seeded replay diverged at step %d: %v vs %v", i, first[i], second[i])
		}
	}

	other := gen.Generate(rand.New(rand.NewSource(43)))
	if first.Terminal() == other.Terminal() {
		t.Errorf("different seeds produced identical terminal price %v", first.Terminal())
	}
}

func TestGenerate_SingleStep(t *testing.T) {
	p := baseParams()
	p.Steps = 1

	gen, err := New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	traj := gen.Generate(rand.New(rand.NewSource(7)))
	if len(traj) != 2 {
		t.Fatalf("trajectory length = %d, want 2", len(traj))
	}
}

func TestNew_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.SimulationParameters)
		field  string
	}{
		{"zero spot", func(p *model.SimulationParameters) { p.Spot = 0 }, "spot"},
		{"negative spot", func(p *model.SimulationParameters) { p.Spot = -100 }, "spot"},
		{"zero maturity", func(p *model.SimulationParameters) { p.Maturity = 0 }, "maturity"},
		{"negative volatility", func(p *model.SimulationParameters) { p.Volatility = -0.2 }, "volatility"},
		{"zero steps", func(p *model.SimulationParameters) { p.Steps = 0 }, "steps"},
		{"zero paths", func(p *model.SimulationParameters) { p.Paths = 0 }, "paths"},
		{"negative workers", func(p *model.SimulationParameters) { p.Workers = -1 }, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mutate(&p)
			_, err := New(p)
			var invalid *model.InvalidParameterError
			if !errors.As(err, &invalid) {
				t.Fatalf("New() error = %v, want *model.InvalidParameterError", err)
			}
			if invalid.Field != tt.field {
				t.Errorf("error field = %q, want %q", invalid.Field, tt.field)
			}
		})
	}
}

func TestGenerate_MeanTerminalPrice(t *testing.T) {
	// Under the risk-neutral measure E[S(T)] = S0 * exp(r*T). A crude sample
	// mean over many paths should land near it.
	p := baseParams()
	gen, err := New(p)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rng := rand.New(rand.NewSource(2024))
	const n = 20000
	var sum float64
	for i := 0; i < n; i++ {
		sum += gen.Generate(rng).Terminal()
	}
	mean := sum / n

	want := p.Spot * math.Exp(p.Rate*p.Maturity)
	if math.Abs(mean-want) > 0.75 {
		t.Errorf("mean terminal price = %v, want about %v", mean, want)
	}
}
