// SPDX-License-Identifier: ice License 1.0
//go:build !zerolog

package log

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ice-blockchain/wallkit/config"
)

// .
var (
	//nolint:gochecknoglobals // Immutable singleton.
	appCfg cfg
	//nolint:gochecknoglobals // Immutable.
	levels = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}
)

//nolint:gochecknoinits // log is global, so it's initialization can be done in init
func init() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix | log.LUTC | log.Lshortfile | log.Lmicroseconds)
	config.MustLoadFromKey(applicationYAMLKey, &appCfg)
	if _, known := levels[strings.ToLower(appCfg.Level)]; !known {
		appCfg.Level = defaultLevel
	}
}

func enabled(level string) bool {
	return levels[level] >= levels[strings.ToLower(appCfg.Level)]
}

func printf(prefix, msg string, fields ...any) {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(msg)
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			sb.WriteString(fmt.Sprintf(" %v=%v", fields[i], fields[i+1]))
		} else {
			sb.WriteString(fmt.Sprintf(" %v", fields[i]))
		}
	}
	log.Output(3, sb.String()) //nolint:errcheck,gomnd,mnd // Nothing to do if stderr fails; 3 skips printf and the level func.
}

func Error(err error, fields ...any) {
	if err == nil {
		return
	}
	printf("ERROR:", err.Error(), fields...)
}

func Debug(msg string, fields ...any) {
	if !enabled("debug") {
		return
	}
	printf("DEBUG:", msg, fields...)
}

func Info(msg string, fields ...any) {
	if !enabled("info") {
		return
	}
	printf("INFO:", msg, fields...)
}

func Warn(msg string, fields ...any) {
	if !enabled("warn") {
		return
	}
	printf("WARN:", msg, fields...)
}

func Fatal(anything any, fields ...any) {
	if anything == nil {
		return
	}
	defer os.Exit(1)
	Error(asError(anything), fields...)
}

func Panic(anything any, fields ...any) {
	if anything == nil {
		return
	}
	defer func() {
		panic(anything)
	}()
	Error(asError(anything), fields...)
}

func asError(anything any) error {
	switch obj := anything.(type) {
	case error:
		return obj
	case string:
		return errors.New(obj)
	default:
		return errors.Errorf("%#v", obj)
	}
}

func Level() string {
	return appCfg.Level
}
