//go:build !regionrelease

package region

const defaultChecked = true
