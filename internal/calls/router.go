package calls

import (
	"context"
	"fmt"
	"strings"
)

type route struct {
	match    func(target string) bool
	executor Executor
}

// Router is an Executor dispatching calls by target account.
type Router struct {
	routes []route
}

func NewRouter() *Router {
	return &Router{}
}

// HandleSuffix routes every target ending with "."+parent.
func (r *Router) HandleSuffix(parent string, executor Executor) *Router {
	suffix := "." + parent
	r.routes = append(r.routes, route{
		match:    func(target string) bool { return strings.HasSuffix(target, suffix) },
		executor: executor,
	})
	return r
}

// HandleDefault routes every target not matched before.
func (r *Router) HandleDefault(executor Executor) *Router {
	r.routes = append(r.routes, route{
		match:    func(string) bool { return true },
		executor: executor,
	})
	return r
}

func (r *Router) Execute(ctx context.Context, call Call) Result {
	for _, rt := range r.routes {
		if rt.match(call.Target) {
			return rt.executor.Execute(ctx, call)
		}
	}
	return FailureResult(call.ID, fmt.Errorf("no executor for target %s", call.Target))
}
