// Package workspace manages the run-scoped temporary directory used to
// stage encoded payloads and downloaded artifacts, with exclusive
// ownership enforced by a lock file and guaranteed removal on release.
package workspace
