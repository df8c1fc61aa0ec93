package core

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/devpin-sh/devpin/internal/manifest"
)

// SetupEnv loads the merged manifest at cfgpath and moves the working
// directory next to it so relative paths in commands behave the same no
// matter where devpin was invoked from.
func SetupEnv(cfgpath string) (*manifest.Manifest, error) {
	absolutePath, err := filepath.Abs(cfgpath)
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(absolutePath)
	if err := os.Chdir(configDir); err != nil {
		return nil, err
	}

	log.Debug().Str("cwd", configDir).Msg("setting working directory to manifest dir")

	return manifest.Load(absolutePath)
}

// SetupFile is SetupEnv without import expansion. Commands that rewrite the
// manifest file itself (fmt, encrypt) operate on single documents.
func SetupFile(cfgpath string) (*manifest.Manifest, error) {
	absolutePath, err := filepath.Abs(cfgpath)
	if err != nil {
		return nil, err
	}

	configDir := filepath.Dir(absolutePath)
	if err := os.Chdir(configDir); err != nil {
		return nil, err
	}

	log.Debug().Str("cwd", configDir).Msg("setting working directory to manifest dir")

	return manifest.LoadFile(absolutePath)
}
