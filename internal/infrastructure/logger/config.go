package logger

import (
	"os"
	"runtime"
)

type Config struct {
	Level      Level             `json:"level"       yaml:"level"       mapstructure:"-"`
	Format     string            `json:"format"      yaml:"format"      mapstructure:"format"` // json, text, console
	Output     string            `json:"output"      yaml:"output"      mapstructure:"output"` // stdout, stderr, file
	FilePath   string            `json:"file_path"   yaml:"file_path"   mapstructure:"file_path"`
	MaxSize    int               `json:"max_size"    yaml:"max_size"    mapstructure:"max_size"` // MB
	MaxBackups int               `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int               `json:"max_age"     yaml:"max_age"     mapstructure:"max_age"` // days
	Compress   bool              `json:"compress"    yaml:"compress"    mapstructure:"compress"`
	Fields     map[string]string `json:"fields"      yaml:"fields"      mapstructure:"fields"`
}

// GetDefaultFields collects the static fields attached to every log line.
func GetDefaultFields() Fields {
	hostname, _ := os.Hostname()

	fields := Fields{
		"hostname":   hostname,
		"pid":        os.Getpid(),
		"go_version": runtime.Version(),
		"service":    "robot-dashboard",
	}

	if robotID := os.Getenv("ROBODASH_ROBOT_ID"); robotID != "" {
		fields["robot_id"] = robotID
	}
	if track := os.Getenv("ROBODASH_TRACK"); track != "" {
		fields["track"] = track
	}
	if appVersion := os.Getenv("APP_VERSION"); appVersion != "" {
		fields["app_version"] = appVersion
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		fields["environment"] = env
	}

	return fields
}

func NewDefaultConfig() *Config {
	config := &Config{
		Level:      LevelInfo,
		Format:     "console",
		Output:     "stdout",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		Fields:     make(map[string]string),
	}

	// only string-valued defaults survive the conversion; pid is re-added by the logger
	for k, v := range GetDefaultFields() {
		if str, ok := v.(string); ok {
			config.Fields[k] = str
		}
	}

	return config
}
