// Package render is the reference renderer for vcore.
//
// A Document applies a vdom Mutation stream to an in-memory node tree and
// keeps the ElementID to node table the stream refers to. It is used by the
// tests of the engine, for server-side rendering, and as the server-side
// mirror of what a liveview client shows.
//
// # Basic Usage
//
//	dom := vdom.New(App, nil)
//	doc := render.NewDocument()
//
//	var m vdom.Mutations
//	dom.Rebuild(&m)
//	if err := doc.Apply(m.Take()); err != nil {
//	    return err
//	}
//
//	html, err := render.NewRenderer(render.RendererConfig{}).RenderToString(doc)
//
// RenderStatic does all of that in one call and also waits for suspended
// components to resolve.
//
// # Security
//
// All text content and attribute values are escaped.
package render
