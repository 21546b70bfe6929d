// config loads game settings from defaults, an optional YAML file, the
// environment and command line flags, in increasing precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultPort    = 9222
	DefaultLogFile = "logs/game.log"

	envPrefix = "SIMPLE_GAME"
	fileName  = "simple-game"
)

type Config struct {
	Window   WindowConfig `mapstructure:"window"`
	Bridge   BridgeConfig `mapstructure:"bridge"`
	Log      LogConfig    `mapstructure:"log"`
	Font     FontConfig   `mapstructure:"font"`
	TestMode bool         `mapstructure:"test_mode"`
}

type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
}

type BridgeConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout"`
	ScreenshotTimeout time.Duration `mapstructure:"screenshot_timeout"`
	WebRTC            WebRTCConfig  `mapstructure:"webrtc"`
}

type WebRTCConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	PublicIP string `mapstructure:"public_ip"`
	STUNPort int    `mapstructure:"stun_port"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

type FontConfig struct {
	// Path to a TTF/OTF file, empty means search the system fonts
	Path string `mapstructure:"path"`
}

type LoadOptions struct {
	// ConfigFile is read if set and must exist. Otherwise simple-game.yaml
	// is read from the working directory if present.
	ConfigFile string
	// Flags are bound by name: "test-mode" and "font"
	Flags *pflag.FlagSet
}

func Load(options LoadOptions) (Config, error) {
	v := viper.New()

	v.SetDefault("window.width", 800)
	v.SetDefault("window.height", 600)
	v.SetDefault("window.title", "Simple Game")
	v.SetDefault("bridge.host", "127.0.0.1")
	v.SetDefault("bridge.port", DefaultPort)
	v.SetDefault("bridge.command_timeout", 2*time.Second)
	v.SetDefault("bridge.screenshot_timeout", 5*time.Second)
	v.SetDefault("bridge.webrtc.enabled", false)
	v.SetDefault("bridge.webrtc.public_ip", "")
	v.SetDefault("bridge.webrtc.stun_port", 0)
	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.debug", false)
	v.SetDefault("font.path", "")
	v.SetDefault("test_mode", false)

	v.SetConfigType("yaml")
	if options.ConfigFile != "" {
		v.SetConfigFile(options.ConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(fileName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// names the test runner sets
	if err := v.BindEnv("bridge.port", "TEST_PORT", envPrefix+"_BRIDGE_PORT"); err != nil {
		return Config{}, errors.Wrap(err, "bind TEST_PORT")
	}
	if err := v.BindEnv("log.file", "TEST_LOG_FILE", envPrefix+"_LOG_FILE"); err != nil {
		return Config{}, errors.Wrap(err, "bind TEST_LOG_FILE")
	}

	if options.Flags != nil {
		if flag := options.Flags.Lookup("test-mode"); flag != nil {
			if err := v.BindPFlag("test_mode", flag); err != nil {
				return Config{}, errors.Wrap(err, "bind test-mode flag")
			}
		}
		if flag := options.Flags.Lookup("font"); flag != nil {
			if err := v.BindPFlag("font.path", flag); err != nil {
				return Config{}, errors.Wrap(err, "bind font flag")
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if options.ConfigFile != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "read config")
		}
	}

	// TEST_DEBUG turns on debug logging when set to anything, even empty
	if _, ok := os.LookupEnv("TEST_DEBUG"); ok {
		v.Set("log.debug", true)
	}
	v.Set("bridge.port", parsePort(v.GetString("bridge.port")))

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	return c, nil
}

// parsePort falls back to DefaultPort for anything that isn't a valid TCP port
func parsePort(s string) int {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return DefaultPort
	}
	return port
}
