package vm

import "fmt"

// ---------------------------------------------------------------------------
// Active exception regions
// ---------------------------------------------------------------------------
//
// Each frame keeps a stack of the regions it is inside. TRY pushes a region
// in the try state. A fault moves the innermost region to a handler or to
// its finally body; LEAVE ends a try or handler body normally; END_FINALLY
// pops the region and resumes whatever completion the finally body
// interrupted: a jump, a return, or a fault still looking for a handler.

type regionState uint8

const (
	inTry regionState = iota
	inHandler
	inFinally
)

type completionKind uint8

const (
	completeNone completionKind = iota
	completeJump
	completeReturn
	completeThrow
)

// completion is the outcome a finally body runs in front of.
type completion struct {
	kind   completionKind
	target int
	value  Value
	fault  *Fault
}

type activeRegion struct {
	index   int
	region  *ExceptionRegion
	state   regionState
	pending completion
}

func (f *CallFrame) enterRegion(idx int) {
	f.regions = append(f.regions, &activeRegion{index: idx, region: f.Method.regions[idx]})
}

func (f *CallFrame) topRegion() *activeRegion {
	if len(f.regions) == 0 {
		return nil
	}
	return f.regions[len(f.regions)-1]
}

func (f *CallFrame) popRegion() {
	f.regions[len(f.regions)-1] = nil
	f.regions = f.regions[:len(f.regions)-1]
}

// runFinally transfers control to ar's finally body with c pending.
func (f *CallFrame) runFinally(ar *activeRegion, c completion) {
	ar.state = inFinally
	ar.pending = c
	f.stack = f.stack[:0]
	f.IP = ar.region.Finally
}

// leaveRegion completes the try or handler body of the innermost region and
// continues at target, after the finally body when there is one.
func (f *CallFrame) leaveRegion(idx, target int) error {
	ar := f.topRegion()
	if ar == nil || ar.index != idx || ar.state == inFinally {
		return fmt.Errorf("%w: LEAVE of inactive region %d in %s at %d", ErrMalformed, idx, f.Method, f.start)
	}
	if ar.region.Finally >= 0 {
		f.runFinally(ar, completion{kind: completeJump, target: target})
		return nil
	}
	f.popRegion()
	f.IP = target
	return nil
}

// endFinally pops the innermost region at the end of its finally body and
// returns the completion the body ran in front of.
func (f *CallFrame) endFinally(idx int) (completion, error) {
	ar := f.topRegion()
	if ar == nil || ar.index != idx || ar.state != inFinally {
		return completion{}, fmt.Errorf("%w: END_FINALLY outside finally of region %d in %s at %d",
			ErrMalformed, idx, f.Method, f.start)
	}
	f.popRegion()
	return ar.pending, nil
}

// unwindReturn routes a return through every enclosing finally body. It
// reports true when no finally remains and the frame should return v now.
// A return from inside a finally body discards that body's pending outcome.
func (f *CallFrame) unwindReturn(v Value) bool {
	for len(f.regions) > 0 {
		ar := f.topRegion()
		if ar.state != inFinally && ar.region.Finally >= 0 {
			f.runFinally(ar, completion{kind: completeReturn, value: v})
			return false
		}
		f.popRegion()
	}
	return true
}

// catch searches the frame's active regions, innermost first, for somewhere
// to continue after fault. Filters are only tested while a region's try
// body is running; a fault from a handler or from an unmatched try still
// runs the region's finally body, with the fault pending. A fault from a
// finally body replaces whatever that body was pending. catch reports false
// when the frame has no region left and the fault must leave the frame.
func (f *CallFrame) catch(fault *Fault) bool {
	for len(f.regions) > 0 {
		ar := f.topRegion()
		if ar.state == inTry {
			if entry, ok := ar.region.matches(fault.Object.class); ok {
				ar.state = inHandler
				f.stack = append(f.stack[:0], FromObject(fault.Object))
				f.IP = entry
				return true
			}
		}
		if ar.state != inFinally && ar.region.Finally >= 0 {
			f.runFinally(ar, completion{kind: completeThrow, fault: fault})
			return true
		}
		f.popRegion()
	}
	return false
}
