package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"bookcipher/internal/ctxlog"
	"bookcipher/internal/library"
	"bookcipher/internal/server"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/go-homedir"
)

type Config struct {
	Log     ctxlog.Config  `yaml:"log"`
	Library library.Config `yaml:"library"`
	Cipher  CipherConfig   `yaml:"cipher"`
	Server  server.Config  `yaml:"server"`
}

type CipherConfig struct {
	// Format of written cipher files: json or msgpack.
	Format  string `yaml:"format"`
	// Workers encoding in parallel. 0 and 1 both mean sequential.
	Workers int    `yaml:"workers"`
}

func configDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".bookcipher"), nil
}

// DefaultConfig is used for everything the config file leaves out.
func DefaultConfig(dir string) Config {
	return Config{
		Log: ctxlog.Config{
			Level:  "info",
			Format: "text",
		},
		Library: library.Config{
			File: filepath.Join(dir, "library.db"),
		},
		Cipher: CipherConfig{
			Format:  "json",
			Workers: 1,
		},
		Server: server.Config{
			Port:            8080,
			AntidosBuckets:  64,
			AntidosPeriod:   10 * time.Millisecond,
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// LoadConfig decodes filename over defaults. When the file does not exist and
// explicit is false, the defaults are returned unchanged.
func LoadConfig(ctx context.Context, filename string, explicit bool, defaults Config) (Config, error) {
	file, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return defaults, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("open %q: %w", filename, err)
	}
	defer ctxlog.Close(ctx, "config file", file)

	dec := yaml.NewDecoder(file, yaml.Strict())

	config := defaults
	err = dec.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}

	return config, nil
}
