package upload

import "github.com/swdepot/depot-engine/internal/logging"

// Guard is a host-supplied protection installed while a session is sending
// and released unconditionally when the session completes or fails. Typical
// guards are a page-unload interceptor that prompts before navigating away
// and a visibility listener that warns when the view is hidden mid-transfer.
// Guards are advisory only: they never abort the in-flight transfer.
type Guard interface {
	Install()
	Release()
}

// GuardFuncs adapts a pair of functions to a Guard. Either may be nil.
type GuardFuncs struct {
	OnInstall func()
	OnRelease func()
}

func (g GuardFuncs) Install() {
	if g.OnInstall != nil {
		g.OnInstall()
	}
}

func (g GuardFuncs) Release() {
	if g.OnRelease != nil {
		g.OnRelease()
	}
}

// LogGuard records guard lifecycle in the engine log. Used as a default when
// the host supplies no guards of its own.
type LogGuard struct {
	Logger *logging.Logger
	Name   string
}

func (g LogGuard) Install() {
	if g.Logger != nil {
		g.Logger.Debug().Str("guard", g.Name).Msg("Guard installed")
	}
}

func (g LogGuard) Release() {
	if g.Logger != nil {
		g.Logger.Debug().Str("guard", g.Name).Msg("Guard released")
	}
}
