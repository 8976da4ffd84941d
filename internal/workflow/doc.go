// Package workflow owns the conversion state machine: a strictly
// ordered sequence of remote transitions (create, upload, ingest wait,
// convert, convert wait, download, cleanup) driven through the API
// client and the polling primitive, plus the error taxonomy that
// classifies every fatal outcome.
package workflow
