package stream

import (
	"fmt"

	"github.com/acode/lib-go/errors"
)

// Feeder turns growing body snapshots into Process calls with only the new
// text. Transports report the whole body received so far on every update.
type Feeder struct {
	protocol *Protocol
	seen     int
	stopped  bool
}

// NewFeeder creates a Feeder for p.
func NewFeeder(p *Protocol) *Feeder {
	return &Feeder{protocol: p}
}

// Feed processes the part of snapshot not seen before.
func (f *Feeder) Feed(snapshot []byte) error {
	if f.stopped {
		return nil
	}
	if len(snapshot) < f.seen {
		return errors.WrapFatal(
			fmt.Errorf("snapshot of %d bytes is shorter than %d bytes already seen", len(snapshot), f.seen),
			"Feeder", "Feed", "compute delta")
	}
	if len(snapshot) == f.seen {
		return nil
	}

	delta := string(snapshot[f.seen:])
	f.seen = len(snapshot)
	return f.protocol.Process(delta)
}

// Stop makes every later Feed a no-op.
func (f *Feeder) Stop() {
	f.stopped = true
}

// Seen returns the number of bytes consumed so far.
func (f *Feeder) Seen() int {
	return f.seen
}
