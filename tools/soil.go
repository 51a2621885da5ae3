package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
)

const (
	// SoilToolName is the name the model uses to call the soil tool.
	SoilToolName = "get_soil_npk"

	// DummySource marks soil samples as synthetic.
	DummySource = "Dummy Data (Randomly Generated)"

	soilDescription = `Gets DUMMY soil NPK (Nitrogen, Phosphorus, Potassium) content
for a specific location.
This tool returns random values and does not call a real API.`
)

// NutrientRange is an inclusive range of readings for one nutrient and depth.
type NutrientRange struct {
	Key  string
	Min  int
	Max  int
	Unit string
}

// SoilRanges lists the generated readings in output order.
var SoilRanges = []NutrientRange{
	{Key: "n_0-5cm", Min: 3000, Max: 7000, Unit: "dg/kg"},
	{Key: "n_5-15cm", Min: 2000, Max: 5000, Unit: "dg/kg"},
	{Key: "p_0-5cm", Min: 1500, Max: 2500, Unit: "mg/kg"},
	{Key: "p_5-15cm", Min: 1000, Max: 2000, Unit: "mg/kg"},
	{Key: "k_0-5cm", Min: 8000, Max: 13000, Unit: "cg/kg"},
	{Key: "k_5-15cm", Min: 9000, Max: 14000, Unit: "cg/kg"},
}

// SoilProperties holds each reading formatted as "<value> <unit>".
type SoilProperties struct {
	Nitrogen0to5    string `json:"n_0-5cm"`
	Nitrogen5to15   string `json:"n_5-15cm"`
	Phosphorus0to5  string `json:"p_0-5cm"`
	Phosphorus5to15 string `json:"p_5-15cm"`
	Potassium0to5   string `json:"k_0-5cm"`
	Potassium5to15  string `json:"k_5-15cm"`
}

// SoilSample is the record returned by the soil tool.
type SoilSample struct {
	Location       string         `json:"location"`
	Source         string         `json:"source"`
	SoilProperties SoilProperties `json:"soil_properties"`
}

// SoilTool synthesizes NPK readings. It performs no I/O.
type SoilTool struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSoilTool creates a soil tool drawing from rng. A nil rng uses the
// unseeded process-wide generator.
func NewSoilTool(rng *rand.Rand) *SoilTool {
	return &SoilTool{rng: rng}
}

// AsTool exposes Fetch as the get_soil_npk tool.
func (s *SoilTool) AsTool() Tool {
	return NewLocationTool(SoilToolName, soilDescription, s.Fetch)
}

// Sample draws a new set of readings for location.
func (s *SoilTool) Sample(location string) SoilSample {
	values := make([]string, len(SoilRanges))
	for i, r := range SoilRanges {
		values[i] = fmt.Sprintf("%d %s", s.between(r.Min, r.Max), r.Unit)
	}

	return SoilSample{
		Location: location,
		Source:   DummySource,
		SoilProperties: SoilProperties{
			Nitrogen0to5:    values[0],
			Nitrogen5to15:   values[1],
			Phosphorus0to5:  values[2],
			Phosphorus5to15: values[3],
			Potassium0to5:   values[4],
			Potassium5to15:  values[5],
		},
	}
}

// Fetch returns a fresh sample for location as indented JSON.
func (s *SoilTool) Fetch(_ context.Context, location string) string {
	// Marshalling a struct of strings cannot fail.
	out, _ := json.MarshalIndent(s.Sample(location), "", "  ")
	return string(out)
}

func (s *SoilTool) between(lo, hi int) int {
	if s.rng == nil {
		return lo + rand.IntN(hi-lo+1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.IntN(hi-lo+1)
}
