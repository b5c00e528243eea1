// Package config loads the yaml configuration into gconfig.Shared.
package config

import (
	"path/filepath"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/dataroom/library/log"
)

// LoadFromFile loads cfgPath and records its directory as cfg_dir.
func LoadFromFile(cfgPath string) {
	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// ResolvePath makes a relative path relative to the configuration directory.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if dir := gconfig.Shared.GetString("cfg_dir"); dir != "" {
		return filepath.Join(dir, p)
	}
	return p
}
