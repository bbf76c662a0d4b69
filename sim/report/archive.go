package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/inference-sim/retirement-sim/sim"
	"github.com/klauspost/compress/zstd"
)

// WriteArchive writes events as zstd-compressed JSON lines, one event per line.
func WriteArchive(w io.Writer, events []sim.RetirementEvent) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	jw := json.NewEncoder(enc)
	for i := range events {
		if err := jw.Encode(&events[i]); err != nil {
			enc.Close()
			return fmt.Errorf("encoding event %s: %w", events[i].EventID, err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	return nil
}

// ReadArchive decodes an archive written by WriteArchive.
func ReadArchive(r io.Reader) ([]sim.RetirementEvent, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer dec.Close()

	var events []sim.RetirementEvent
	jr := json.NewDecoder(dec)
	for {
		var ev sim.RetirementEvent
		err := jr.Decode(&ev)
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
}
