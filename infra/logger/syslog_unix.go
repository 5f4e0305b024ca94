//go:build !windows && !plan9

package logger

import (
	"io"
	"log/syslog"

	"github.com/rs/zerolog"
)

func newSyslogWriter(tag string) (zerolog.LevelWriter, io.Closer, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_DEBUG, tag)
	if err != nil {
		return nil, nil, err
	}
	return zerolog.SyslogLevelWriter(w), w, nil
}
