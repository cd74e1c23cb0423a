package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Global settings resolve in order: flag, CABLESIM_* environment variable,
// cablesim.yaml, default.
const (
	keyData     = "data"
	keyLogLevel = "log-level"
	keyLogFile  = "log-file"
	keyGraylog  = "graylog"
	keyIndex    = "index"
)

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetDefault(keyData, ".cablesim")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFile, "")
	v.SetDefault(keyGraylog, "")
	v.SetDefault(keyIndex, true)

	v.SetEnvPrefix("cablesim")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("cablesim")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "cablesim"))
	}
	return v
}

// loadSettings binds the root's persistent flags and reads the settings
// file if there is one.
func loadSettings(v *viper.Viper, root *cobra.Command) error {
	if err := v.BindPFlags(root.PersistentFlags()); err != nil {
		return err
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read settings: %w", err)
		}
	}
	return nil
}
