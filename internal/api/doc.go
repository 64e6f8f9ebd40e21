// Package api exposes the product catalog over HTTP. It decodes and
// validates requests, enforces the per-route scopes, calls the product
// service and renders results and errors as JSON with stable error codes.
package api
