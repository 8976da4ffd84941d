// Package transport abstracts the HTTP exchange with the conversion
// service behind a small interface with two interchangeable backends:
// the in-process net/http client and a curl subprocess. The workflow
// depends only on the interface; the backend is selected once at
// startup.
package transport
