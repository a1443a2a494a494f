// Package sofsconfig loads default CLI settings (block cache sizing, default
// inode counts) from an optional config file, falling back to built-in
// defaults when none is found.
package sofsconfig

import (
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/rafaelferreirapt/sofs14-sub000/pkg/elog"
)

// configName is the base name viper searches for; it appends the extension
// itself, so this finds sofs.yaml (or sofs.yml, sofs.json, ...).
const configName = "sofs"

// Defaults holds the settings a CLI command reads before applying its own
// flag overrides.
type Defaults struct {
	CacheBlocks int
	TotalInodes uint32
}

// Load reads cfgFile (or ~/sofs.yaml when cfgFile is empty) into Defaults,
// falling back to built-in values if no config file is found.
func Load(cfgFile string, log elog.View) Defaults {

	d := Defaults{CacheBlocks: 256, TotalInodes: 1024}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return d
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
	}

	if err := viper.ReadInConfig(); err != nil {
		if log != nil {
			log.Debugf("%s", err.Error())
			log.Debugf("using built-in defaults")
		}
		return d
	}

	if log != nil {
		log.Debugf("using config file: %s", viper.ConfigFileUsed())
	}

	if v := viper.GetInt("cache-blocks"); v > 0 {
		d.CacheBlocks = v
	}
	if v := viper.GetInt("total-inodes"); v > 0 {
		d.TotalInodes = uint32(v)
	}

	return d
}
