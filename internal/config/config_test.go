package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_appliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not set")
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 100 {
		t.Errorf("rag defaults: size=%d overlap=%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.SimilarityThreshold != 0.5 {
		t.Errorf("threshold default: %v", cfg.RAG.SimilarityThreshold)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("dimensions default: %d", cfg.Embedding.Dimensions)
	}
	if len(cfg.Watch.Extensions) == 0 {
		t.Error("extensions default empty")
	}
}

func TestLoad_relativePathsExpandToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "storage:\n  data_dir: ./data\n  keyword_index_path: ./indices/bleve\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DataDir != filepath.Join(dir, "data") {
		t.Errorf("data_dir: %s", cfg.Storage.DataDir)
	}
	if cfg.Storage.KeywordIndexPath != filepath.Join(dir, "indices/bleve") {
		t.Errorf("keyword_index_path: %s", cfg.Storage.KeywordIndexPath)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Watch.Directories = []string{"/tmp/notes"}

	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != "/tmp/notes" {
		t.Errorf("directories: %v", loaded.Watch.Directories)
	}
	if loaded.Server.Port != cfg.Server.Port {
		t.Errorf("port: %d", loaded.Server.Port)
	}
}

func TestWatchConfig_recursiveDefault(t *testing.T) {
	var w WatchConfig
	if !w.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false ignored")
	}
}
