// Package poller provides the bounded-interval status polling
// primitive shared by the two wait states of the conversion workflow.
package poller
