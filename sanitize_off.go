//go:build !blockpool_sanitize

package blockpool

const sanitizeDefault = false
