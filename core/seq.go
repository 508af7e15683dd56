// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines Seq, the lazy single-pass sequence every pipeline stage
// produces. No element is computed before it is pulled, and a fully consumed
// sequence cannot be replayed without re-running the operation that built it.
package core

// Seq is a lazy, single-pass, forward-only sequence of values.
//
// Consumers call Next until it reports done or an error; stopping early is
// the cancellation mechanism: nothing past the last pulled element is ever
// computed. Close releases underlying resources (driver cursors) and is
// safe to call more than once; CollectSeq and FoldSeq close for you.
type Seq[T any] struct {
	pull    func() (T, bool, error)
	release func()
	done    bool
}

// NewSeq creates a Seq from a pull function.
//
// pull returns the next element and true, or the zero value and false once
// the sequence is exhausted. A returned error terminates the sequence.
func NewSeq[T any](pull func() (T, bool, error)) *Seq[T] {
	return &Seq[T]{pull: pull}
}

// DeferSeq creates a Seq whose producing function runs on the first pull.
//
// This is how stages stay lazy: building a pipeline of wrapped sequences
// performs no work, not even opening the underlying query, until the
// consumer asks for the first element.
func DeferSeq[T any](open func() (*Seq[T], error)) *Seq[T] {
	var inner *Seq[T]
	s := &Seq[T]{}
	s.pull = func() (T, bool, error) {
		if inner == nil {
			opened, err := open()
			if err != nil {
				var zero T
				return zero, false, err
			}
			inner = opened
			s.release = inner.Close
		}
		return inner.Next()
	}
	return s
}

// SeqOf creates an already-materialized Seq over the given elements.
func SeqOf[T any](elements ...T) *Seq[T] {
	index := 0
	return NewSeq(func() (T, bool, error) {
		if index >= len(elements) {
			var zero T
			return zero, false, nil
		}
		element := elements[index]
		index++
		return element, true, nil
	})
}

// EmptySeq creates a Seq with no elements.
func EmptySeq[T any]() *Seq[T] {
	return SeqOf[T]()
}

// OnClose attaches a release function invoked when the Seq is closed or
// exhausted. Drivers use it to tie cursor cleanup to consumption.
func (s *Seq[T]) OnClose(release func()) *Seq[T] {
	previous := s.release
	s.release = func() {
		if previous != nil {
			previous()
		}
		release()
	}
	return s
}

// Next pulls the next element. It returns false once the sequence is
// exhausted; after that every call keeps returning false. An error
// terminates the sequence and is returned to the caller of the pull.
func (s *Seq[T]) Next() (T, bool, error) {
	if s.done {
		var zero T
		return zero, false, nil
	}
	element, ok, err := s.pull()
	if err != nil || !ok {
		s.Close()
		var zero T
		return zero, false, err
	}
	return element, true, nil
}

// Close marks the sequence as consumed and releases underlying resources.
// It is idempotent.
func (s *Seq[T]) Close() {
	if s.done {
		return
	}
	s.done = true
	if s.release != nil {
		s.release()
	}
}

// MapSeq lazily transforms each element of a Seq.
//
// The transform runs when the element is pulled, never before. An error
// from the transform terminates the resulting sequence.
func MapSeq[T any, U any](s *Seq[T], transform func(T) (U, error)) *Seq[U] {
	mapped := NewSeq(func() (U, bool, error) {
		element, ok, err := s.Next()
		if err != nil || !ok {
			var zero U
			return zero, false, err
		}
		transformed, err := transform(element)
		if err != nil {
			var zero U
			return zero, false, err
		}
		return transformed, true, nil
	})
	return mapped.OnClose(s.Close)
}

// CollectSeq drains a Seq into a slice, closing it afterwards.
func CollectSeq[T any](s *Seq[T]) ([]T, error) {
	defer s.Close()
	var collected []T
	for {
		element, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return collected, nil
		}
		collected = append(collected, element)
	}
}

// FoldSeq reduces a Seq to a single value, closing it afterwards.
func FoldSeq[T any, A any](s *Seq[T], initial A, step func(A, T) A) (A, error) {
	defer s.Close()
	accumulated := initial
	for {
		element, ok, err := s.Next()
		if err != nil {
			return accumulated, err
		}
		if !ok {
			return accumulated, nil
		}
		accumulated = step(accumulated, element)
	}
}
