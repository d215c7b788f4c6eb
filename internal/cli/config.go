package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/upiguard/upiguard/internal/records"
)

const (
	keyAPIBaseURL = "api_base_url"
	keyToken      = "token"
)

var configLoaded bool

// initConfig layers defaults, ~/.upiguard/config.yaml, UPIGUARD_* env and flags
func initConfig() error {
	if configLoaded {
		return nil
	}
	configLoaded = true

	viper.SetDefault(keyAPIBaseURL, records.DefaultBaseURL)
	viper.SetEnvPrefix("UPIGUARD")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(ConfigPath())
	}
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", viper.ConfigFileUsed(), err)
	}
	return nil
}

// ConfigPath returns the default config file location
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".upiguard", "config.yaml")
	}
	return filepath.Join(home, ".upiguard", "config.yaml")
}

// saveConfig persists one key to the config file in use
func saveConfig(key, value string) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	// only the file's own keys are written back, never env or flag overrides
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	file.Set(key, value)
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod config: %w", err)
	}

	viper.Set(key, value)
	return nil
}

var settableKeys = map[string]bool{keyAPIBaseURL: true, keyToken: true}

func newConfigCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change console settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file:  %s\n", orNone(viper.ConfigFileUsed()))
			fmt.Fprintf(out, "%s: %s\n", keyAPIBaseURL, viper.GetString(keyAPIBaseURL))
			token := "(not logged in)"
			if viper.GetString(keyToken) != "" {
				token = "(set)"
			}
			fmt.Fprintf(out, "%s:        %s\n", keyToken, token)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting (api_base_url, token)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			if !settableKeys[key] {
				keys := make([]string, 0, len(settableKeys))
				for k := range settableKeys {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				return fmt.Errorf("unknown key %q (valid: %s)", args[0], strings.Join(keys, ", "))
			}
			if err := saveConfig(key, args[1]); err != nil {
				return err
			}
			if key == keyAPIBaseURL || key == keyToken {
				// the next record command reconnects
				sess.reset()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", key)
			return nil
		},
	})

	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
