package window

import (
	"fmt"
	"time"
)

// Policy selects how a window's samples are aggregated.
type Policy int

const (
	// PolicyPeak scores a window by its single best sample.
	PolicyPeak Policy = iota
	// PolicyCumulative scores a window by the distinct satellites seen
	// across all of its samples.
	PolicyCumulative
)

// PolicyFor maps the cumulative flag onto a Policy.
func PolicyFor(cumulative bool) Policy {
	if cumulative {
		return PolicyCumulative
	}
	return PolicyPeak
}

func (p Policy) String() string {
	switch p {
	case PolicyPeak:
		return "peak"
	case PolicyCumulative:
		return "cumulative"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Window is a fixed-length time range sampled every SubInterval minutes.
type Window struct {
	Start       time.Time
	Duration    int // minutes
	SubInterval int // minutes
}

func (w Window) validate() error {
	if w.Duration <= 0 {
		return invalidf("window duration must be > 0 minutes, got %d", w.Duration)
	}
	if w.SubInterval <= 0 {
		return invalidf("sub-interval must be > 0 minutes, got %d", w.SubInterval)
	}
	if w.SubInterval > w.Duration {
		return invalidf("sub-interval (%d) must not exceed window duration (%d)", w.SubInterval, w.Duration)
	}
	return nil
}

// SampleCount is floor(Duration / SubInterval).
func (w Window) SampleCount() int {
	if w.SubInterval <= 0 {
		return 0
	}
	return w.Duration / w.SubInterval
}

// SampleAt returns the i-th sample instant, start + i*S.
func (w Window) SampleAt(i int) time.Time {
	return w.Start.UTC().Add(time.Duration(i) * time.Duration(w.SubInterval) * time.Minute)
}

// Samples returns the sample instants start, start+S, start+2S, ...
func (w Window) Samples() []time.Time {
	n := w.SampleCount()
	out := make([]time.Time, n)
	for i := range n {
		out[i] = w.SampleAt(i)
	}
	return out
}

// Evaluation is the outcome of scoring one window.
type Evaluation struct {
	// Instant is the best sample for the peak policy and the window start
	// for the cumulative policy. Zero when there were no satellites at all.
	Instant    time.Time
	Satellites []Satellite
}

// Count is the number of visible satellites the evaluation scored.
func (e Evaluation) Count() int {
	return len(e.Satellites)
}

// Evaluate scores w with the given policy.
func Evaluate(policy Policy, sats []Satellite, obs Observer, w Window) (Evaluation, error) {
	switch policy {
	case PolicyPeak:
		return EvaluatePeak(sats, obs, w)
	case PolicyCumulative:
		return EvaluateCumulative(sats, obs, w)
	default:
		return Evaluation{}, invalidf("unknown policy %v", policy)
	}
}

// EvaluatePeak samples w and keeps the sample with the most visible
// satellites. Ties go to the earlier sample. When nothing is ever visible the
// first sample instant is returned with an empty list.
//
// An empty satellite list returns a zero Evaluation without validating w.
func EvaluatePeak(sats []Satellite, obs Observer, w Window) (Evaluation, error) {
	if len(sats) == 0 {
		return Evaluation{}, nil
	}
	if err := w.validate(); err != nil {
		return Evaluation{}, err
	}

	best := Evaluation{Instant: w.Start.UTC(), Satellites: []Satellite{}}
	for i := range w.SampleCount() {
		at := w.SampleAt(i)
		visible, err := Sample(sats, obs, at)
		if err != nil {
			return Evaluation{}, err
		}
		if best.Count() < len(visible) {
			best = Evaluation{Instant: at, Satellites: visible}
		}
	}
	return best, nil
}

// EvaluateCumulative samples w and unions every visible satellite by name,
// in order of first sighting. The instant is always the window start.
//
// An empty satellite list returns a zero Evaluation without validating w.
func EvaluateCumulative(sats []Satellite, obs Observer, w Window) (Evaluation, error) {
	if len(sats) == 0 {
		return Evaluation{}, nil
	}
	if err := w.validate(); err != nil {
		return Evaluation{}, err
	}

	seen := make(map[string]struct{}, len(sats))
	union := []Satellite{}
	for i := range w.SampleCount() {
		visible, err := Sample(sats, obs, w.SampleAt(i))
		if err != nil {
			return Evaluation{}, err
		}
		for _, s := range visible {
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = struct{}{}
			union = append(union, s)
		}
	}
	return Evaluation{Instant: w.Start.UTC(), Satellites: union}, nil
}
