// Package notifications sends optional ntfy pushes when a conversion
// run reaches a terminal outcome. Without a configured topic the
// service is a noop.
package notifications
