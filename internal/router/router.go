// Package router maps query view paths to view definitions.
package router

import (
	"strings"

	"github.com/hay-kot/msgscope/internal/core/query"
)

// DefaultPath is the view shown for "/" and any unknown path.
const DefaultPath = "/query/raw"

// Route describes one query view.
type Route struct {
	Path  string
	Name  string
	Title string
	Kind  query.Kind
	// MsgID is fixed for views bound to one message type, 0 otherwise.
	MsgID uint16
}

// Fixed reports whether the route pins the message id.
func (r Route) Fixed() bool {
	return r.Kind == query.KindBody && r.MsgID != 0
}

var routes = []Route{
	{Path: "/query/raw", Name: "raw", Title: "Raw", Kind: query.KindRaw},
	{Path: "/query/body", Name: "body", Title: "Body", Kind: query.KindBody},
	{Path: "/query/location", Name: "location", Title: "Location 0x0200", Kind: query.KindBody, MsgID: query.MsgLocation},
	{Path: "/query/can", Name: "can", Title: "CAN 0x0705", Kind: query.KindBody, MsgID: query.MsgCANData},
}

// Routes returns all routes in tab order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Default returns the default route.
func Default() Route {
	r, _ := lookup(DefaultPath)
	return r
}

// Resolve returns the route for path. Unknown paths, including "/" and "",
// resolve to the default route; ok reports whether path matched exactly.
func Resolve(path string) (r Route, ok bool) {
	if r, ok := lookup(clean(path)); ok {
		return r, true
	}
	return Default(), false
}

// ByName returns the route with the given name or path.
func ByName(name string) (Route, bool) {
	name = strings.TrimSpace(name)
	for _, r := range routes {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return lookup(clean(name))
}

// Index returns the tab position of the route at path, or -1.
func Index(path string) int {
	path = clean(path)
	for i, r := range routes {
		if r.Path == path {
			return i
		}
	}
	return -1
}

// Next returns the route after the one at path, wrapping around.
func Next(path string) Route {
	return step(path, 1)
}

// Prev returns the route before the one at path, wrapping around.
func Prev(path string) Route {
	return step(path, -1)
}

func step(path string, delta int) Route {
	i := Index(path)
	if i < 0 {
		return Default()
	}
	n := len(routes)
	return routes[((i+delta)%n+n)%n]
}

func lookup(path string) (Route, bool) {
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

func clean(path string) string {
	path = strings.TrimSpace(path)
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
