package main

import (
	"github.com/dietmate/categorizer/internal/config"
	"github.com/dietmate/categorizer/internal/docstore"
	"github.com/spf13/viper"
)

// openStore opens the document store named by config, with tilde and
// environment expansion on the path.
func openStore() (docstore.Store, error) {
	path := viper.GetString("store.path")
	if path == "" {
		path = config.DefaultStorePath()
	}

	return docstore.NewSQLiteStore(config.ExpandPath(path))
}
