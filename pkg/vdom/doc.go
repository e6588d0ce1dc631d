// Package vdom is the reconciliation engine and cooperative scheduler at the
// core of vcore.
//
// Components describe their output as a VNode: an instance of an immutable
// Template with a slice of dynamic values filled in. The engine keeps the
// last committed VNode for every mounted component (a Scope), re-runs
// components whose state changed, diffs old against new and emits the
// difference as an ordered Mutation stream that a renderer applies.
//
// # Templates
//
// A Template is the static skeleton of one call site. Only the dynamic slots
// of a template are compared when a component re-renders with the same
// template, so the cost of a re-render is proportional to its dynamic
// content:
//
//	var row = vdom.NewTemplate("row",
//	    vdom.El("li", vdom.DynAttr(0),
//	        vdom.El("span", "Name: "),
//	        vdom.DynText(0),
//	    ),
//	)
//
//	v := vdom.NewVNode(key, row,
//	    []vdom.DynamicNode{vdom.Text(name)},
//	    [][]vdom.Attribute{{vdom.Class(cls)}},
//	)
//
// # Mutations
//
// The Mutation stream is a small stack machine. Create operations push nodes,
// AppendChildren, InsertAfter, InsertBefore and ReplaceWith pop them, and
// PushRoot re-pushes an existing node so it can be moved. Every node the
// engine creates carries an explicit ElementID.
//
// # Scheduling
//
// VirtualDom is single threaded. State writes and event listeners only mark
// scopes dirty; the host drives work by calling Tick (or RenderImmediate)
// and waits for asynchronous tasks with WaitForWork. Wake is the only method
// that may be called from other goroutines.
//
// # Suspense
//
// A component can return a SuspendedError from its render function while a
// task it depends on is pending. The nearest Suspense boundary then shows
// its fallback and keeps the real children mounted in the background until
// every pending task has resolved.
package vdom
