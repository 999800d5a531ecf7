// Package verdict turns scored evidence into a final verdict label and
// confidence via an ordered rule list.
package verdict

import (
	"math"
	"time"

	"github.com/pbriand/verifai/internal/model"
)

// Calculator applies the verdict rules against a set of scored sources.
// Thresholds are configurable so deployments can tune what counts as an
// institutional or official source.
type Calculator struct {
	institutionalThreshold float64
	officialThreshold      float64
	now                    func() time.Time
}

// NewCalculator builds a Calculator from config. A nil config uses defaults.
func NewCalculator(cfg *model.VerdictConfig) *Calculator {
	c := &Calculator{
		institutionalThreshold: 0.8,
		officialThreshold:      0.5,
		now:                    time.Now,
	}
	if cfg != nil {
		if cfg.InstitutionalThreshold > 0 {
			c.institutionalThreshold = cfg.InstitutionalThreshold
		}
		if cfg.OfficialThreshold > 0 {
			c.officialThreshold = cfg.OfficialThreshold
		}
	}
	return c
}

// Compute evaluates the source set and returns the verdict. The rules are
// evaluated top to bottom; the first match wins:
//
//  1. two or more institutional sources        -> VERIFIED
//  2. one institutional, two or more official  -> PARTIALLY_VERIFIED
//  3. any official source and avg trust >= 0.5 -> PARTIALLY_VERIFIED
//  4. avg trust >= 0.35                        -> INSUFFICIENT_DATA
//  5. otherwise                                -> UNVERIFIED
//
// An empty source set short-circuits to UNVERIFIED with floor confidence.
func (c *Calculator) Compute(sources []model.SourceRecord) model.Verdict {
	if len(sources) == 0 {
		return model.Verdict{
			Label:      model.LabelUnverified,
			Confidence: 5,
			ComputedAt: c.now(),
		}
	}

	var sum float64
	var instCount, officialCount int
	for _, src := range sources {
		sum += src.Weight
		if src.Weight >= c.institutionalThreshold {
			instCount++
		}
		if src.Weight >= c.officialThreshold {
			officialCount++
		}
	}
	avgTrust := sum / float64(len(sources))

	var label model.Label
	var confidence int
	switch {
	case instCount >= 2:
		label = model.LabelVerified
		confidence = capAt(95, 65+avgTrust*25+float64(instCount)*5)
	case instCount == 1 && officialCount >= 2:
		label = model.LabelPartiallyVerified
		confidence = capAt(75, 50+avgTrust*20+float64(officialCount)*3)
	case officialCount >= 1 && avgTrust >= 0.5:
		label = model.LabelPartiallyVerified
		confidence = capAt(65, 35+avgTrust*25+float64(officialCount)*2)
	case avgTrust >= 0.35:
		label = model.LabelInsufficientData
		confidence = capAt(45, 15+avgTrust*30)
	default:
		label = model.LabelUnverified
		confidence = floorAt(5, avgTrust*20)
	}

	return model.Verdict{
		Label:              label,
		Confidence:         confidence,
		Sources:            sources,
		InstitutionalCount: instCount,
		AvgTrust:           avgTrust,
		ComputedAt:         c.now(),
	}
}

func capAt(ceiling int, raw float64) int {
	n := int(math.Round(raw))
	if n > ceiling {
		return ceiling
	}
	return n
}

func floorAt(floor int, raw float64) int {
	n := int(math.Round(raw))
	if n < floor {
		return floor
	}
	return n
}
