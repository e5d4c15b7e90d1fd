// Package core is the orchestration layer.  It assembles a transport,
// a capability, and the shared collaborators (registry, metrics,
// logger) into a complete operational mode, with a builder that picks
// the right assembly for a Config.
//
// Layering, bottom to top:
//
//	transport  →  capability  →  session  →  core  →  cmd (CLI)
//
// The builder is the single dispatch point between the two faces of
// gotelnet: the line-mode server and the interactive client.  Nothing
// above core needs to know which one is running.
package core

import "context"

// Mode is one complete way of running gotelnet, owning its lifecycle
// from connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
