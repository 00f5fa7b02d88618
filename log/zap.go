package log

import (
	"fmt"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"moul.io/zapfilter"
)

// Config is the content of the file passed via --log-config.
//
// Example:
//
//	filter: "info+:* debug+:runner debug+:sim.*"
//	graylog: "graylog.local:12201"
type Config struct {
	Filter  string `yaml:"filter"`
	Graylog string `yaml:"graylog"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse log config %s: %w", path, err)
	}
	return cfg, nil
}

// WithFilter restricts the output by zapfilter rules (LEVEL:NAMESPACE ...).
// The level of the logger is lowered to debug, the rules decide what passes.
func (l *Logger) WithFilter(rules string) (*Logger, error) {
	if rules == "" {
		return l, nil
	}
	ff, err := zapfilter.ParseRules(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid filter rules %q: %w", rules, err)
	}
	l.level.SetLevel(DebugLevel)
	wrapped := l.l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapfilter.NewFilteringCore(c, ff)
	}))
	return &Logger{l: wrapped, level: l.level}, nil
}

// WithGelf additionally ships every entry to a Graylog server (udp).
func (l *Logger) WithGelf(addr string) (*Logger, error) {
	if addr == "" {
		return l, nil
	}
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("gelf writer for %s: %w", addr, err)
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	gelfCore := zapcore.NewCore(enc, zapcore.AddSync(w), l.level)
	wrapped := l.l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, gelfCore)
	}))
	return &Logger{l: wrapped, level: l.level}, nil
}

// Apply configures l according to cfg. The filter rules cover the graylog
// output as well.
func (l *Logger) Apply(cfg *Config) (*Logger, error) {
	ret, err := l.WithGelf(cfg.Graylog)
	if err != nil {
		return nil, err
	}
	return ret.WithFilter(cfg.Filter)
}
