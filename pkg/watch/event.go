// Package watch models the events returned by a watch request and decodes
// them from the response stream.
package watch

import (
	"bytes"
	"encoding/json"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// EventType discriminates watch events on the wire.
type EventType string

const (
	EventAdded    EventType = "ADDED"
	EventModified EventType = "MODIFIED"
	EventDeleted  EventType = "DELETED"
	EventBookmark EventType = "BOOKMARK"
	EventError    EventType = "ERROR"
)

// Event is a single watch event. Exactly one payload is meaningful per Type:
//
//	EventAdded, EventModified, EventDeleted  Object
//	EventBookmark                            Bookmark
//	EventError                               Error
type Event[K any] struct {
	Type     EventType
	Object   K
	Bookmark *Bookmark
	Error    *kerrors.ErrorResponse
}

// Bookmark is the reduced object sent with BOOKMARK events. Only the resource
// version can be relied upon.
type Bookmark struct {
	Types    metav1.TypeMeta
	Metadata BookmarkMeta
}

// BookmarkMeta is the metadata of a Bookmark.
type BookmarkMeta struct {
	ResourceVersion string `json:"resourceVersion"`
}

type bookmarkWire struct {
	APIVersion string       `json:"apiVersion"`
	Kind       string       `json:"kind"`
	Metadata   BookmarkMeta `json:"metadata"`
}

// MarshalJSON flattens the type information next to metadata.
func (b Bookmark) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookmarkWire{APIVersion: b.Types.APIVersion, Kind: b.Types.Kind, Metadata: b.Metadata})
}

// UnmarshalJSON decodes the flat wire form.
func (b *Bookmark) UnmarshalJSON(data []byte) error {
	var w bookmarkWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Bookmark{Types: metav1.TypeMeta{APIVersion: w.APIVersion, Kind: w.Kind}, Metadata: w.Metadata}
	return nil
}

// HasObject reports whether the event carries an object of type K.
func (e Event[K]) HasObject() bool {
	switch e.Type {
	case EventAdded, EventModified, EventDeleted:
		return true
	default:
		return false
	}
}

func (e Event[K]) String() string {
	switch e.Type {
	case EventAdded:
		return "Added event"
	case EventModified:
		return "Modified event"
	case EventDeleted:
		return "Deleted event"
	case EventBookmark:
		return "Bookmark event"
	case EventError:
		if e.Error != nil {
			return fmt.Sprintf("Error event: %s", e.Error.Error())
		}
		return "Error event"
	default:
		return fmt.Sprintf("Unknown event %q", string(e.Type))
	}
}

type eventWire struct {
	Type   EventType       `json:"type"`
	Object json.RawMessage `json:"object"`
}

// MarshalJSON encodes the {type, object} wire shape.
func (e Event[K]) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch e.Type {
	case EventAdded, EventModified, EventDeleted:
		payload = e.Object
	case EventBookmark:
		payload = e.Bookmark
	case EventError:
		payload = e.Error
	default:
		return nil, fmt.Errorf("unknown watch event type %q", string(e.Type))
	}
	object, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventWire{Type: e.Type, Object: object})
}

// UnmarshalJSON decodes the {type, object} wire shape. Unknown event types
// and events without an object are rejected.
func (e *Event[K]) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Event[K]{Type: w.Type}
	if (out.HasObject() || w.Type == EventBookmark || w.Type == EventError) && isNull(w.Object) {
		return fmt.Errorf("watch event %s has no object", w.Type)
	}
	switch w.Type {
	case EventAdded, EventModified, EventDeleted:
		if err := json.Unmarshal(w.Object, &out.Object); err != nil {
			return fmt.Errorf("failed to decode %s object: %w", w.Type, err)
		}
	case EventBookmark:
		out.Bookmark = &Bookmark{}
		if err := json.Unmarshal(w.Object, out.Bookmark); err != nil {
			return fmt.Errorf("failed to decode bookmark: %w", err)
		}
	case EventError:
		out.Error = &kerrors.ErrorResponse{}
		if err := json.Unmarshal(w.Object, out.Error); err != nil {
			return fmt.Errorf("failed to decode error status: %w", err)
		}
	default:
		return fmt.Errorf("unknown watch event type %q", string(w.Type))
	}

	*e = out
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
