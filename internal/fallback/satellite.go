package fallback

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rewired-gh/hydrowatch/internal/models"
)

// Simulator synthesizes satellite readings from seasonal heuristics.
// It is safe for concurrent use.
type Simulator struct {
	params Params
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewSimulator creates a simulator. A zero seed seeds from the clock.
func NewSimulator(params Params, seed uint64) *Simulator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Simulator{
		params: params,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Params returns the parameters the simulator was built with.
func (s *Simulator) Params() Params {
	return s.params
}

// uniform returns a value in [lo, hi).
func (s *Simulator) uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Float64()*(hi-lo)
}

// Satellite synthesizes a reading for q. Fill fraction is the season's base
// value plus uniform noise, clamped to [MinFill, MaxFill]. Surface area scales
// with volume^AreaExponent rather than linearly.
func (s *Simulator) Satellite(q models.SatelliteQuery, now time.Time) models.SatelliteReading {
	p := s.params

	noise := s.uniform(-p.FillNoise, p.FillNoise)
	fill := math.Max(p.MinFill, math.Min(p.MaxFill, p.baseFill(q.Season)+noise))

	capacity := q.MaxCapacity
	if !models.IsFinite(capacity) || capacity < 0 {
		capacity = 0
	}
	volume := capacity * fill

	ratio := 0.0
	if capacity > 0 {
		ratio = volume / capacity
	}

	rainfall := p.DryRainfallMm
	if q.Season == models.SeasonMonsoon {
		rainfall = p.MonsoonRainfallMm
	}

	r := models.SatelliteReading{
		SurfaceAreaSqKm: SurfaceArea(volume, p),
		VolumeMCM:       volume,
		WaterLevelM:     p.LevelBaseM + ratio*p.LevelSpanM,
		FillPercentage:  fill * 100,
		CloudCoverPct:   s.uniform(0, p.MaxCloudCoverPct),
		RainfallMm:      rainfall,
		SourceLabel:     SimulatedLabel,
		Timestamp:       now,
	}
	r.ClampFill()
	return r
}

// SurfaceArea applies the empirical area–volume scaling.
func SurfaceArea(volumeMCM float64, p Params) float64 {
	if volumeMCM <= 0 {
		return 0
	}
	return math.Pow(volumeMCM, p.AreaExponent) * p.AreaCoefficient
}
