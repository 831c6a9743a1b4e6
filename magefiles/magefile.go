//go:build mage

// Package main contains Mage build targets for notes-booklet developer
// tooling.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const (
	binDir  = "bin"
	binName = "notes-booklet"
	cmdPkg  = "./cmd/notes-booklet"
)

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	return run("go", "build", "-o", filepath.Join(binDir, binName), cmdPkg)
}

// Test runs all package tests.
func Test() error {
	return run("go", "test", "./...")
}

// Vet runs go vet over the module.
func Vet() error {
	return run("go", "vet", "./...")
}

// Check runs vet and the tests, then builds the binary.
func Check() error {
	mg.Deps(Vet, Test)
	return Build()
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binDir)
}
