// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

// minClocks is the floor below which a forwarded gas budget is rejected as
// too low to do meaningful work, rather than being silently accepted and
// immediately exhausted.
const minClocks = 256

// forwardGas computes the gas budget lent to a callee: the caller's
// remaining external gas times forwardedGas (a fraction over 256), right
// shifted by 8. forwardedGas is a byte so the result can never exceed the
// caller's own remaining budget.
func forwardGas(remainingExternalGas int64, forwardedGas byte) int64 {
	return (remainingExternalGas * int64(forwardedGas)) >> 8
}

// calculateExternalGas derives a callee's own external gas budget -- the
// part it may in turn forward to nested calls -- as 2/3 of the gas
// forwarded to it. Every nested call deducts its forwarded gas from its
// caller's remaining external budget, so gas handed to descendants never
// exceeds what the callee received, and the budget available at each
// further level of nesting shrinks geometrically by this factor.
func calculateExternalGas(currentGas int64) int64 {
	return 2 * currentGas / 3
}
