//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// topic reads the TOPIC environment variable that the pipeline targets need.
func topic() (string, error) {
	t := os.Getenv("TOPIC")
	if t == "" {
		return "", fmt.Errorf("set TOPIC, e.g. TOPIC=\"graph neural networks\" mage run")
	}
	return t, nil
}

// Run builds the CLI and runs a full literature review for $TOPIC.
func Run() error {
	mg.Deps(Build, Init)
	t, err := topic()
	if err != nil {
		return err
	}
	return sh.RunV(binPath, "run", t)
}

// Search builds the CLI and lists candidate papers for $TOPIC without analyzing them.
func Search() error {
	mg.Deps(Build)
	t, err := topic()
	if err != nil {
		return err
	}
	return sh.RunV(binPath, "search", t)
}

// Memory prints the size of the semantic memory index.
func Memory() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "memory", "stats")
}
