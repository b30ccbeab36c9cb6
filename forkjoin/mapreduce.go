package forkjoin

import (
	"fmt"
)

// TaskError reports the failing leaf of a Map or MapReduce call.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("forkjoin: input %d: %v", e.Index, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func apply[S, D any](f func(S) (D, error), x S) (y D, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return f(x)
}

// Map returns f applied to every input, in input order.
//
// Every leaf runs to completion even when another one fails. If any leaf
// fails, the results are discarded and the failure with the lowest input
// index is returned as a *TaskError.
func Map[S, D any](p *Pool, inputs []S, f func(S) (D, error)) ([]D, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	n := len(inputs)
	ys := make([]D, n)
	errs := make([]error, n)
	p.forkJoin(0, n, func(i int) {
		ys[i], errs[i] = apply(f, inputs[i])
	})

	for i, err := range errs {
		if err != nil {
			return nil, &TaskError{Index: i, Err: err}
		}
	}
	return ys, nil
}

// MapReduce runs Map to completion and then calls reduceFn once with the
// complete, ordered intermediate slice. reduceFn also receives empty and
// single-element slices.
func MapReduce[S, I, R any](p *Pool, inputs []S, mapFn func(S) (I, error), reduceFn func([]I) (R, error)) (R, error) {
	ys, err := Map(p, inputs, mapFn)
	if err != nil {
		var zero R
		return zero, err
	}
	return reduceFn(ys)
}
