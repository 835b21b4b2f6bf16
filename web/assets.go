// Package web provides the embedded plantree dashboard.
//
// The dashboard/ directory is embedded at build time. During development,
// if a dashboard directory exists on the filesystem it is served instead,
// so edits show up without a rebuild.
package web

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed dashboard
var assets embed.FS

// GetAssets returns the dashboard filesystem. When devPath names an existing
// directory it is returned as-is; otherwise the embedded copy is used.
// An empty devPath always selects the embedded copy.
func GetAssets(devPath string) fs.FS {
	if devPath != "" {
		if stat, err := os.Stat(devPath); err == nil && stat.IsDir() {
			return os.DirFS(devPath)
		}
	}

	subFS, err := fs.Sub(assets, "dashboard")
	if err != nil {
		panic("failed to access embedded web assets: " + err.Error())
	}
	return subFS
}

// GetAssetsWithBase checks for a development dashboard under
// baseDir/web/dashboard.
func GetAssetsWithBase(baseDir string) fs.FS {
	return GetAssets(filepath.Join(baseDir, "web", "dashboard"))
}
