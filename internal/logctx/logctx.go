// Package logctx wires the rewriter's verbosity knob into structured
// logging. It generalises the teacher's "verbose int" / infof()/debugf()
// scheme (misc.go, git-backup.go) by mapping the same -v/-q count flag onto
// logrus levels, and by attaching phase/worker fields instead of
// interpolating them into a format string.
package logctx

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// New returns a logrus.Logger whose level is derived from verbosity:
//
//	verbosity <= 0 -> Warn
//	verbosity == 1 -> Info
//	verbosity >= 2 -> Debug
func New(verbosity int) *logrus.Logger {
	l := logrus.New()
	switch {
	case verbosity <= 0:
		l.SetLevel(logrus.WarnLevel)
	case verbosity == 1:
		l.SetLevel(logrus.InfoLevel)
	default:
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Phase returns a logger entry scoped to a pipeline phase, e.g.
// logctx.Phase(log, "rewrite-trees").WithField("tree", h).Debug("cache miss")
func Phase(l logrus.FieldLogger, name string) *logrus.Entry {
	return l.WithField("phase", name)
}

// CountFlag is both a bool and an int flag.Value, so that "-v -v -v" and
// "-v=3" are both accepted -- lifted from the teacher's countFlag
// (misc.go), which in turn credits cmd/dist.count in the go.git source.
type CountFlag int

func (c *CountFlag) String() string { return strconv.Itoa(int(*c)) }

func (c *CountFlag) Set(s string) error {
	switch s {
	case "true":
		*c++
	case "false":
		*c = 0
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid count %q", s)
		}
		*c = CountFlag(n)
	}
	return nil
}

func (c *CountFlag) IsBoolFlag() bool { return true }

// Type satisfies github.com/spf13/pflag.Value, so the same CountFlag also
// works as a cobra flag (cmd.Flags().VarP) without a second implementation.
func (c *CountFlag) Type() string { return "count" }

var _ flag.Value = (*CountFlag)(nil)
