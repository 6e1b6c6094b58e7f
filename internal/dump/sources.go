package dump

import (
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/kollacli/internal/config"
)

// DefaultSources returns the Kolla locations a dump collects, laid out as
//
//	kolla/share/ansible
//	kolla/share/docs
//	kolla/etc/config
//	kolla/etc/globals.yml
//	kolla/etc/<kollacli etc dir>
//	<log dir without leading slash>
func DefaultSources(cfg config.Config) []Source {
	kollacliEtc := strings.TrimRight(cfg.KollacliEtc, "/")
	return []Source{
		{Path: filepath.Join(cfg.KollaHome, "ansible"), Name: "kolla/share/ansible"},
		{Path: filepath.Join(cfg.KollaHome, "docs"), Name: "kolla/share/docs"},
		{Path: filepath.Join(cfg.KollaEtc, "config"), Name: "kolla/etc/config"},
		{Path: cfg.GlobalsPath(), Name: "kolla/etc/globals.yml"},
		{Path: kollacliEtc, Name: "kolla/etc/" + filepath.Base(kollacliEtc)},
		{Path: cfg.LogDir, Name: strings.TrimLeft(filepath.ToSlash(cfg.LogDir), "/")},
	}
}
