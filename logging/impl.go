package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl satisfies Logger by embedding a sugared zap logger. Subloggers share the parent's level,
// so raising verbosity on any of them raises it for the whole tree.
type impl struct {
	*zap.SugaredLogger
	name  string
	level zap.AtomicLevel
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = imp.name + "." + subname
	}
	return &impl{
		SugaredLogger: imp.SugaredLogger.Named(subname),
		name:          newName,
		level:         imp.level,
	}
}

func (imp *impl) SetLevel(level zapcore.Level) {
	imp.level.SetLevel(level)
}

func (imp *impl) GetLevel() zapcore.Level {
	return imp.level.Level()
}
