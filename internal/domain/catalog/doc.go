// Package catalog maps application names to executable paths and window
// xpaths, loaded from YAML manifests on disk.
package catalog
