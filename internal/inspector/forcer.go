package inspector

import (
	"fmt"

	"github.com/bluskript/nix-inspect/internal/value"
)

// Forcer forces values to weak-head normal form and contains every failure
// the engine can raise, including panics, as an EvalFailure.
type Forcer struct {
	heap *value.Heap
}

func NewForcer(heap *value.Heap) *Forcer {
	return &Forcer{heap: heap}
}

// Force returns v once it is no longer a thunk. Forcing is memoized in the
// heap, so a second call is a read. A failed force leaves the thunk in place
// and the next call evaluates it again.
func (f *Forcer) Force(v value.Handle) (res value.Handle, err error) {
	if !f.heap.Valid(v) {
		return v, &Error{Kind: EvalFailure, Segment: -1, Detail: fmt.Sprintf("invalid value handle %d", v)}
	}
	defer func() {
		if r := recover(); r != nil {
			res, err = v, &Error{Kind: EvalFailure, Segment: -1, Pos: f.heap.Pos(v), Err: fmt.Errorf("evaluator panic: %v", r)}
		}
	}()
	res, err = f.heap.Force(v)
	if err != nil {
		return v, evalFailure(err, EvalFailure)
	}
	return res, nil
}

// call applies fn to arg with the same containment as Force.
func (f *Forcer) call(fn, arg value.Handle) (res value.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = 0, &Error{Kind: ApplyFailure, Segment: -1, Pos: f.heap.Pos(fn), Err: fmt.Errorf("evaluator panic: %v", r)}
		}
	}()
	res, err = f.heap.Call(fn, arg, f.heap.Pos(fn))
	if err != nil {
		return 0, evalFailure(err, ApplyFailure)
	}
	return res, nil
}
