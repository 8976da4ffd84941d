// Package api implements the typed client for the remote document
// conversion service: credential checks, book/bookflow lifecycle,
// conversion triggering, artifact download, and deletion.
package api
