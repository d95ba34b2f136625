//go:build mage

// Package main contains Mage build targets for pdf2md developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "pdf2md"
	cmdPkg  = "./cmd/pdf2md"
	image   = "pdf2md:latest"
)

// Default runs when mage is invoked without a target.
var Default = Build

// Build compiles the CLI binary into bin/. CGO is required by the SQLite
// catalog driver.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	env := map[string]string{"CGO_ENABLED": "1"}
	if err := sh.RunWithV(env, "go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs vet and tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Convert builds the CLI and converts pdf into outDir.
func Convert(pdf, outDir string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "convert", "--pdf-path", pdf, "--output-dir", outDir)
}

// Image builds the container image used by the docker and podman runtimes.
// The runtime is taken from PDF2MD_RUNNER_RUNTIME, docker by default.
func Image() error {
	runtime := os.Getenv("PDF2MD_RUNNER_RUNTIME")
	if runtime == "" || runtime == "auto" || runtime == "local" {
		runtime = "docker"
	}
	return sh.RunV(runtime, "build", "-t", image, ".")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
