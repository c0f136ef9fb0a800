package main

import (
	"strings"
	"testing"
)

func TestBuildRootCmd(t *testing.T) {
	root := buildRootCmd()

	if root.Use != "parley" {
		t.Errorf("Use = %q", root.Use)
	}
	if !strings.Contains(root.Version, version) {
		t.Errorf("Version = %q, want it to contain %q", root.Version, version)
	}

	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("Find(serve): %v", err)
	}
	if serve.Use != "serve" {
		t.Errorf("serve.Use = %q", serve.Use)
	}

	flag := serve.Flags().Lookup("config")
	if flag == nil {
		t.Fatal("serve command missing --config flag")
	}
	if flag.Shorthand != "c" {
		t.Errorf("config shorthand = %q", flag.Shorthand)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("PARLEY_CONFIG", "")
	if got := defaultConfigPath(); got != "parley.yaml" {
		t.Errorf("defaultConfigPath() = %q", got)
	}
	t.Setenv("PARLEY_CONFIG", "/etc/parley/parley.yaml")
	if got := defaultConfigPath(); got != "/etc/parley/parley.yaml" {
		t.Errorf("defaultConfigPath() = %q", got)
	}
}
