package watch

import (
	"iter"
	"reflect"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// MetaObject is any event payload exposing object metadata.
type MetaObject interface {
	Meta() *metav1.ObjectMeta
}

// MatchesLabels reports whether an event passes a client-side label
// selector. Bookmark and error events always pass so resume positions and
// failures are never hidden. An object event without an object never
// matches a non-empty selector.
func MatchesLabels[K MetaObject](ev Event[K], selector labels.Selector) bool {
	if selector == nil || selector.Empty() || !ev.HasObject() {
		return true
	}
	if isNilObject(ev.Object) {
		return false
	}
	return selector.Matches(labels.Set(ev.Object.Meta().GetLabels()))
}

func isNilObject[K MetaObject](obj K) bool {
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// FilterLabels wraps an event sequence, dropping object events that do not
// match selector. Decode errors are passed through.
func FilterLabels[K MetaObject](events iter.Seq2[Event[K], error], selector labels.Selector) iter.Seq2[Event[K], error] {
	return func(yield func(Event[K], error) bool) {
		for ev, err := range events {
			if err == nil && !MatchesLabels(ev, selector) {
				continue
			}
			if !yield(ev, err) {
				return
			}
		}
	}
}
