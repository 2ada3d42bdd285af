// Package api exposes the study scheduler over HTTP as JSON. Handlers are thin
// adapters over the session controller and the item store; every error is
// mapped to a status code and a message safe to show to clients.
package api
