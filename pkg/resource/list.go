package resource

import (
	"iter"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ObjectList is the generic shape of every list response. Items keep the
// order the server returned them in.
type ObjectList[T any] struct {
	// Metadata is mostly useful for its resourceVersion and continue token.
	Metadata metav1.ListMeta `json:"metadata"`
	// Items are the listed objects.
	Items []T `json:"items"`
}

// Len returns the number of items.
func (l *ObjectList[T]) Len() int {
	return len(l.Items)
}

// All iterates over index and item.
func (l *ObjectList[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range l.Items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Values iterates over the items.
func (l *ObjectList[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range l.Items {
			if !yield(item) {
				return
			}
		}
	}
}

// Pointers iterates over pointers to the items so they can be modified in place.
func (l *ObjectList[T]) Pointers() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for i := range l.Items {
			if !yield(&l.Items[i]) {
				return
			}
		}
	}
}

// Take transfers ownership of the items to the caller, leaving the list empty.
func (l *ObjectList[T]) Take() []T {
	items := l.Items
	l.Items = nil
	return items
}

// ResourceVersion returns the list resource version, if set.
func (l *ObjectList[T]) ResourceVersion() (string, bool) {
	return l.Metadata.ResourceVersion, l.Metadata.ResourceVersion != ""
}

// Continue returns the continue token for the next page, if any.
func (l *ObjectList[T]) Continue() (string, bool) {
	return l.Metadata.Continue, l.Metadata.Continue != ""
}
