// Package app assembles handlers and decorators into one dispatcher.
package app

import (
	"fmt"
	"regexp"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
)

// isPath matches valid routing paths.
var isPath = regexp.MustCompile(`^[0-9a-zA-Z_/]+$`).MatchString

// Router allows us to register many handlers with different paths and
// then direct each message to the proper handler.
//
// Minimal interface modeled after net/http.ServeMux.
type Router struct {
	routes map[string]drip.Handler
}

var _ drip.Registry = (*Router)(nil)
var _ drip.Handler = (*Router)(nil)

// NewRouter initializes a router with no routes.
func NewRouter() *Router {
	return &Router{
		routes: make(map[string]drip.Handler),
	}
}

// Handle assigns the given handler to handle processing of every
// message of the type of the provided message.
// Handle panics if a handler for given message type was already
// registered.
func (r *Router) Handle(m drip.Msg, h drip.Handler) {
	path := m.Path()
	if !isPath(path) {
		panic(fmt.Sprintf("invalid path: %q", path))
	}
	if _, ok := r.routes[path]; ok {
		panic(fmt.Sprintf("re-registering route: %q", path))
	}
	r.routes[path] = h
}

// handler returns the registered Handler for this message path. If no
// path is found, it returns a noSuchPathHandler.
func (r *Router) handler(m drip.Msg) drip.Handler {
	if h, ok := r.routes[m.Path()]; ok {
		return h
	}
	return noSuchPathHandler{path: m.Path()}
}

// Check dispatches to the proper handler based on the message path.
func (r *Router) Check(ctx drip.Context, store drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	return r.handler(msg).Check(ctx, store, tx)
}

// Deliver dispatches to the proper handler based on the message path.
func (r *Router) Deliver(ctx drip.Context, store drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	return r.handler(msg).Deliver(ctx, store, tx)
}

type noSuchPathHandler struct {
	path string
}

var _ drip.Handler = noSuchPathHandler{}

func (h noSuchPathHandler) Check(ctx drip.Context, store drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", h.path)
}

func (h noSuchPathHandler) Deliver(ctx drip.Context, store drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", h.path)
}
