package lower

import "github.com/pkg/errors"

// Errorf formats an internal lowering error, per spec.md §7's
// diag.InternalError kind — lowering only runs once the typechecker has
// reported zero errors, so anything Errorf reports is a compiler bug
// rather than a user-facing diagnostic.
func Errorf(format string, a ...interface{}) error {
	return errors.Errorf(format, a...)
}

// fail routes an internal error through the Generator's error handler,
// if one was installed.
func (g *Generator) fail(format string, a ...interface{}) {
	if g.eh != nil {
		g.eh(Errorf(format, a...))
	}
}
