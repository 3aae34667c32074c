package repository

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrWaitTimeout is returned by Page.WaitFor when the selector never appears.
	ErrWaitTimeout = errors.New("timed out waiting for selector")
	// ErrNoDocument is returned when a query runs before any navigation.
	ErrNoDocument = errors.New("page has no document loaded")
)

// Node is a located DOM element, or the document root of a Page.
// Queries are scoped to the node's subtree and return matches in document order.
type Node interface {
	LocateAll(selector string) []Node
	LocateFirst(selector string) (Node, bool)
	Count(selector string) int
	// Text returns the trimmed visible text of the node.
	Text() string
	Attr(name string) (string, bool)
}

// Page is a single browser tab. It is not safe for concurrent use.
type Page interface {
	Node
	// Navigate loads url and returns once the page is considered ready,
	// waiting at most settle for client-rendered content.
	Navigate(ctx context.Context, url string, settle time.Duration) error
	// WaitFor blocks until selector matches at least one element or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	URL() string
	Close() error
}

// Browser opens browser sessions. One session is used for a whole run.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}
