//go:build !regionrelease

package union

// narrowChecks makes Narrow assert the discriminant.
const narrowChecks = true
