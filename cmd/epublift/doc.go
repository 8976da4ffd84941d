// Command epublift drives one EPUB upgrade through the remote
// conversion service: create, upload, poll, convert, poll, download,
// cleanup.
package main
