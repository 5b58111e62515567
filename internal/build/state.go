package build

import (
	"git.home.luguber.info/inful/refsite/internal/render"
	"git.home.luguber.info/inful/refsite/internal/templates"
)

// State is what a successful full build leaves behind for content builds. It is never
// modified after construction; a new full build produces a new State.
type State struct {
	// BuildID is the id of the full build that produced this state.
	BuildID string
	// TemplateDir is the scratch template tree the registry was loaded from.
	TemplateDir string
	// Render is the render context of the full build. Content builds use a copy with
	// reloaded site attributes.
	Render *render.Context
}

// Templates returns the registry held by s, or nil when s has no render context.
func (s *State) Templates() *templates.Registry {
	if s == nil || s.Render == nil {
		return nil
	}
	return s.Render.Templates
}
