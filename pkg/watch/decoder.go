package watch

import (
	"encoding/json"
	"errors"
	"io"
	"iter"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// Decoder reads watch events from a response body. The API server writes one
// JSON event per line; the decoder does not depend on the line breaks.
type Decoder[K any] struct {
	dec    *json.Decoder
	logger logr.Logger
	count  int
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder[K any](r io.Reader) *Decoder[K] {
	return &Decoder[K]{
		dec:    json.NewDecoder(r),
		logger: klog.Background().WithName("watch-decoder"),
	}
}

// WithLogger replaces the decoder's logger.
func (d *Decoder[K]) WithLogger(logger logr.Logger) *Decoder[K] {
	d.logger = logger
	return d
}

// Next returns the next event. It returns io.EOF once the stream ends
// cleanly; a malformed event is returned as a SerializationError.
func (d *Decoder[K]) Next() (Event[K], error) {
	var ev Event[K]
	if err := d.dec.Decode(&ev); err != nil {
		if errors.Is(err, io.EOF) {
			d.logger.V(4).Info("Watch stream closed", "events", d.count)
			return Event[K]{}, io.EOF
		}
		return Event[K]{}, kerrors.NewSerialization("decode watch event", err)
	}
	d.count++
	d.logger.V(5).Info("Decoded watch event", "type", ev.Type)
	return ev, nil
}

// Events iterates over the stream until it ends or an event fails to decode.
// A decode failure is yielded once and ends the iteration.
func (d *Decoder[K]) Events() iter.Seq2[Event[K], error] {
	return func(yield func(Event[K], error) bool) {
		for {
			ev, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}
