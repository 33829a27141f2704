package ner

import (
	"os"
	"path/filepath"
)

// bundleDirLooksValid reports whether dir contains the files an ONNX NER
// bundle needs before attempting to load a session against it. This is a
// preflight only — it doesn't validate the model graph itself.
func bundleDirLooksValid(dir string) bool {
	if dir == "" {
		return false
	}
	required := []string{
		"model.onnx",
		"label_map.json",
		filepath.Join("tokenizer", "vocab.txt"),
	}
	for _, p := range required {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			return false
		}
	}
	return true
}

// resolveSharedLibraryPath locates the onnxruntime shared library, honoring
// an explicit override before probing common install locations.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); env != "" {
		return env
	}
	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{bundleDir, filepath.Join(bundleDir, "lib"), "/usr/local/lib", "/usr/lib"}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
