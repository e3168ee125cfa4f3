package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hwfleet/hwfleet/pkg/log"
)

const (
	configFlagName = "config"
	logLevelKey    = "log.level"
)

// loadConfig reads the config file and wires environment overrides.
// An explicit file that cannot be read is an error; a missing default file is not.
func loadConfig(cfgFile, name, envPrefix string, watch bool) error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".hwfleet"))
		}
		viper.AddConfigPath("/etc/hwfleet")
		viper.SetConfigName(name)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	log.Info("Using config file", "file", viper.ConfigFileUsed())

	if watch {
		viper.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Config file changed", "file", e.Name, "op", e.Op.String())
			reloadLogLevel()
		})
		viper.WatchConfig()
	}
	return nil
}

func addConfigFlag(fs *pflag.FlagSet, name string, cfgFile *string) {
	fs.StringVarP(cfgFile, configFlagName, "c", "", "Read configuration from the specified file, support YAML, JSON and TOML. Defaults to "+name+".yaml in ., ~/.hwfleet or /etc/hwfleet.")
}

// reloadLogLevel applies log.level from a changed config file. Every other
// option needs a restart.
func reloadLogLevel() {
	lvl := viper.GetString(logLevelKey)
	if lvl == "" || lvl == log.Level() {
		return
	}
	if err := log.SetLevel(lvl); err != nil {
		log.Error(err, "Ignoring log level from config file")
		return
	}
	log.Info("Log level changed", "level", lvl)
}
