package server

import (
	"math/rand"
	"time"
)

// Simulator is the injected fault layer spec.md §4.E describes:
// Bernoulli drop of inbound datagrams, Bernoulli drop of outbound
// datagrams, and a fixed outbound delay. Grounded on the probability
// rolls client/main.go's PacketDemo used in the teacher, generalized
// to a reusable component the server loop consults on every datagram
// rather than a one-off demo.
type Simulator struct {
	LossRate      float64
	ReplyLossRate float64
	DelayMs       uint32

	rng *rand.Rand
}

func NewSimulator(lossRate, replyLossRate float64, delayMs uint32) *Simulator {
	return &Simulator{
		LossRate:      clampProbability(lossRate),
		ReplyLossRate: clampProbability(replyLossRate),
		DelayMs:       delayMs,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// DropIncoming rolls the incoming-loss probability.
func (s *Simulator) DropIncoming() bool {
	return s.rng.Float64() < s.LossRate
}

// DropOutgoing rolls the reply/callback-loss probability.
func (s *Simulator) DropOutgoing() bool {
	return s.rng.Float64() < s.ReplyLossRate
}

// Delay sleeps the configured synthetic delay. Called only for
// datagrams that survive the drop roll, per spec.md §9's
// drop-decision-then-delay ordering.
func (s *Simulator) Delay() {
	if s.DelayMs > 0 {
		time.Sleep(time.Duration(s.DelayMs) * time.Millisecond)
	}
}

func clampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ClampDelayMs clamps a possibly-negative CLI flag value to a valid
// delay, per spec.md §6 ("negative delays to 0").
func ClampDelayMs(ms int64) uint32 {
	if ms < 0 {
		return 0
	}
	return uint32(ms)
}
