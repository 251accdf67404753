//go:build regionrelease

package union

const narrowChecks = false
