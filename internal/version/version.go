// Package version хранит сведения о сборке, заданные через -ldflags:
//
//	-X github.com/vladislavdragonenkov/logistics/internal/version.version=v1.2.0
//
// Без -ldflags commit и date берутся из VCS-настроек, которые go build
// записывает в бинарник.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

var (
	version = "dev"
	commit  = unknown
	date    = unknown
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	commit, date = fromBuildInfo(info, commit, date)
}

// fromBuildInfo дополняет незаданные commit и date значениями vcs.revision и
// vcs.time. Значения из -ldflags не перезаписываются. Ревизия с
// незакоммиченными изменениями получает суффикс -dirty.
func fromBuildInfo(info *debug.BuildInfo, commit, date string) (string, string) {
	if info == nil {
		return commit, date
	}
	var revision, vcsTime string
	modified := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if commit == unknown && revision != "" {
		commit = revision
		if modified {
			commit += "-dirty"
		}
	}
	if date == unknown && vcsTime != "" {
		date = vcsTime
	}
	return commit, date
}

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// Fields возвращает сведения о сборке в виде полей лога.
func Fields() map[string]any {
	return map[string]any{
		"version": version,
		"commit":  commit,
		"date":    date,
	}
}

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
