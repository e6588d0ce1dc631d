package render

import (
	"context"

	"github.com/vango-dev/vcore/pkg/vdom"
)

// Build mounts render in a fresh VirtualDom, waits until every task it
// spawned has finished, and returns the resulting document. The
// VirtualDom is closed before Build returns.
//
// Suspended components are resolved before the document is returned, so
// the output never contains suspense fallbacks unless ctx ends first.
func Build(ctx context.Context, render vdom.RenderFunc, props any, opts ...vdom.Option) (*Document, error) {
	dom := vdom.New(render, props, append([]vdom.Option{vdom.WithContext(ctx)}, opts...)...)
	defer dom.Close()

	doc := NewDocument()
	var m vdom.Mutations
	if err := dom.Rebuild(&m); err != nil {
		return nil, err
	}
	for {
		dom.RenderImmediate(&m)
		if err := doc.Apply(m.Take()); err != nil {
			return nil, err
		}
		if dom.TaskCount() == 0 {
			return doc, nil
		}
		if err := dom.WaitForWork(ctx); err != nil {
			return doc, err
		}
	}
}

// RenderStatic renders a component tree to HTML, resolving suspended
// components first.
func RenderStatic(ctx context.Context, render vdom.RenderFunc, props any, config RendererConfig, opts ...vdom.Option) (string, error) {
	doc, err := Build(ctx, render, props, opts...)
	if err != nil {
		return "", err
	}
	return NewRenderer(config).RenderToString(doc)
}
