package main

import (
	"github.com/pkg/errors"

	"popstat/internal/config"
	"popstat/internal/sim"
)

// loadDocument reads the run document at path, or returns the default
// document when path is empty.
func loadDocument(path string) (sim.Document, error) {
	if path == "" {
		return sim.DefaultDocument()
	}
	root, err := config.ReadFile(path)
	if err != nil {
		return sim.Document{}, err
	}
	doc, err := sim.ParseDocument(root)
	if err != nil {
		return sim.Document{}, errors.Wrapf(err, "load %s", path)
	}
	return doc, nil
}
