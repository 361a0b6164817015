// Package urlutil validates and normalizes the URLs vmc works with: cloud
// controller targets (often typed without a scheme, e.g. "api.vcap.me") and
// the application URIs returned by the controller.
//
//	target, err := urlutil.NormalizeTarget("API.vcap.me/")
//	// target == "http://api.vcap.me"
package urlutil
