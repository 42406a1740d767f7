package netstack

import "errors"

// Validator accumulates decode errors encountered while validating a wire
// frame's size and field consistency, in the style of the per-protocol
// ValidateSize methods on Frame types in ethernet, arp, ipv4 and udp. A
// single Validator can be reused across calls via ResetErr.
type Validator struct {
	accum []error
}

// AddError appends a validation error. AddError panics if err is nil: callers
// should only ever call it from a failed condition branch.
func (v *Validator) AddError(err error) {
	if err == nil {
		panic("netstack: AddError called with nil error")
	}
	v.accum = append(v.accum, err)
}

// HasError reports whether any error has been accumulated since the last
// ResetErr.
func (v *Validator) HasError() bool { return len(v.accum) != 0 }

// Err returns the accumulated errors joined with errors.Join, or nil if none
// were recorded.
func (v *Validator) Err() error {
	switch len(v.accum) {
	case 0:
		return nil
	case 1:
		return v.accum[0]
	default:
		return errors.Join(v.accum...)
	}
}

// ResetErr discards all accumulated errors, readying the Validator for reuse.
func (v *Validator) ResetErr() { v.accum = v.accum[:0] }
