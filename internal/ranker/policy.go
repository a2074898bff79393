package ranker

import (
	"time"

	"github.com/woozymasta/autojoin/internal/models"
)

// DefaultThreshold is the number of human players a server must exceed to be joined.
const DefaultThreshold = 6

// DefaultLatencyCap rejects servers at or above this latency.
const DefaultLatencyCap = 50 * time.Millisecond

// Policy decides whether a ranked server is worth joining.
type Policy struct {
	// LatencyCap rejects servers whose latency is not below it. Zero disables the cap.
	LatencyCap time.Duration

	// Threshold is the number of human players that must be exceeded.
	Threshold uint8
}

// ShouldJoin reports whether s has a free slot, more than Threshold human players
// and, when a cap is set, a latency below LatencyCap.
func (p Policy) ShouldJoin(s models.QueriedServer) bool {
	if s.Info.AvailableSlots() == 0 {
		return false
	}
	if s.Info.RealPlayers() <= p.Threshold {
		return false
	}
	if p.LatencyCap > 0 && time.Duration(s.Latency)*time.Millisecond >= p.LatencyCap {
		return false
	}

	return true
}

// Select returns the first server in list order that ShouldJoin accepts.
func (p Policy) Select(list models.RankedList) (models.QueriedServer, bool) {
	for _, s := range list {
		if p.ShouldJoin(s) {
			return s, true
		}
	}

	return models.QueriedServer{}, false
}
