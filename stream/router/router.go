// Package router implements longest-prefix-match dispatch of incoming
// Prepares across a set of registered RequestHandlers, keyed by
// destination address prefix.
package router

import (
	"context"

	"github.com/interledger4j/ilpstream/ilp"
)

type route struct {
	prefix  ilp.Address
	handler ilp.RequestHandler
}

// Router dispatches a Prepare to the registered handler whose prefix is
// the longest match for the Prepare's destination. It is not safe for
// concurrent Register calls racing HandleRequest; routes are expected
// to be set up once at startup.
type Router struct {
	routes  []route
	noRoute ilp.RequestHandler
}

// New builds an empty Router. noRoute answers any Prepare matching no
// registered prefix; it may be nil, in which case HandleRequest returns
// an F02_UNREACHABLE-style reject.
func New(noRoute ilp.RequestHandler) *Router {
	return &Router{noRoute: noRoute}
}

// Register adds handler for destinations starting with prefix.
func (r *Router) Register(prefix ilp.Address, handler ilp.RequestHandler) {
	r.routes = append(r.routes, route{prefix: prefix, handler: handler})
}

// HandleRequest implements ilp.RequestHandler, dispatching to the
// registered route whose prefix is the longest match.
func (r *Router) HandleRequest(ctx context.Context, from ilp.Address, prepare ilp.Prepare) (*ilp.Fulfill, *ilp.Reject) {
	var best *route
	for i := range r.routes {
		rt := &r.routes[i]
		if !prepare.Destination.StartsWith(rt.prefix) {
			continue
		}
		if best == nil || len(rt.prefix.String()) > len(best.prefix.String()) {
			best = rt
		}
	}
	if best != nil {
		return best.handler.HandleRequest(ctx, from, prepare)
	}
	if r.noRoute != nil {
		return r.noRoute.HandleRequest(ctx, from, prepare)
	}
	reject := ilp.RejectBuilder{
		Code:        ilp.ErrorCode("F02"),
		Message:     "no route found for destination",
		TriggeredBy: from,
	}.Build()
	return nil, &reject
}
