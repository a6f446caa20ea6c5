package knowledge

import (
	"math"
	"time"
)

// Params are the knowledge-tracing constants. Zero values take the defaults.
type Params struct {
	// PGuess is the chance an unmastered learner succeeds anyway.
	PGuess float64 `yaml:"p_guess" json:"p_guess"`
	// PSlip is the chance a mastered learner still fails.
	PSlip float64 `yaml:"p_slip" json:"p_slip"`
	// ForgetRate is the exponential decay per day applied to the prior.
	ForgetRate float64 `yaml:"forget_rate" json:"forget_rate"`
	// InitialProbability seeds a skill on its first observation.
	InitialProbability float64 `yaml:"initial_probability" json:"initial_probability"`
	// DisableForgetting forces ForgetRate to 0 instead of the default.
	DisableForgetting bool `yaml:"-" json:"-"`
}

var DefaultParams = Params{
	PGuess:             0.25,
	PSlip:              0.10,
	ForgetRate:         0.05,
	InitialProbability: 0.5,
}

func (p Params) withDefaults() Params {
	if p.PGuess == 0 {
		p.PGuess = DefaultParams.PGuess
	}
	if p.PSlip == 0 {
		p.PSlip = DefaultParams.PSlip
	}
	switch {
	case p.DisableForgetting:
		p.ForgetRate = 0
	case p.ForgetRate == 0:
		p.ForgetRate = DefaultParams.ForgetRate
	}
	if p.InitialProbability == 0 {
		p.InitialProbability = DefaultParams.InitialProbability
	}
	return p
}

// Decay applies exponential forgetting between two instants. Non-positive
// elapsed time leaves the probability unchanged.
func Decay(p float64, forgetRate float64, from, to time.Time) float64 {
	days := to.Sub(from).Hours() / 24
	if days <= 0 || forgetRate <= 0 {
		return clamp01(p)
	}
	return clamp01(p * math.Exp(-forgetRate*days))
}

// Likelihood is the continuous evidence term for a success rate in [0,1].
func Likelihood(successRate, pGuess, pSlip float64) float64 {
	return successRate*pGuess + (1-successRate)*(1-pSlip)
}

// Posterior fuses likelihood l with prior p. A degenerate denominator keeps the prior.
func Posterior(prior, l float64) float64 {
	num := l * prior
	den := num + (1-l)*(1-prior)
	if den <= 0 || math.IsNaN(den) {
		return clamp01(prior)
	}
	return clamp01(num / den)
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
