package minimax

import (
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type tracePass struct {
	Depth     int      `yaml:"depth"`
	Move      string   `yaml:"move"`
	Value     float64  `yaml:"value"`
	PV        []string `yaml:"pv,flow"`
	Nodes     uint64   `yaml:"nodes"`
	ElapsedMS float64  `yaml:"elapsed-ms"`
	Exhausted bool     `yaml:"exhausted,omitempty"`
}

// trace appends one completed pass to the log stream as a YAML list item.
func (s *Solver) trace(r Result) {
	if s.logStream == nil {
		return
	}
	pass := tracePass{
		Depth:     r.Depth,
		Move:      r.Move.String(),
		Value:     r.Value,
		PV:        PVLine{Moves: r.PV}.Strings(),
		Nodes:     r.Nodes,
		ElapsedMS: float64(r.Elapsed.Microseconds()) / 1000,
		Exhausted: r.Exhausted,
	}
	out, err := yaml.Marshal([]tracePass{pass})
	if err != nil {
		log.Err(err).Msg("trace-marshal")
		return
	}
	if _, err := s.logStream.Write(out); err != nil {
		log.Err(err).Msg("trace-write")
	}
}
