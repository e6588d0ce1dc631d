package vdom

type errorState struct {
	err    error
	source string
}

// ErrorBoundaryProps configures an ErrorBoundary.
type ErrorBoundaryProps struct {
	Children *VNode
	// Fallback renders the first error raised below the boundary. Calling
	// reset clears the error and renders Children again.
	Fallback func(err error, reset func()) *VNode
}

// ErrorBoundary returns a component that catches render errors of the
// components below it.
func ErrorBoundary(props ErrorBoundaryProps) Component {
	return Component{Name: "ErrorBoundary", Render: errorBoundaryRender, Props: props}
}

func errorBoundaryRender(s *Scope) (*VNode, error) {
	if s.errs == nil {
		s.errs = &errorState{}
	}
	p, _ := s.props.(ErrorBoundaryProps)
	if s.errs.err == nil {
		return p.Children, nil
	}
	if p.Fallback == nil {
		return nil, nil
	}
	err := s.errs.err
	return p.Fallback(err, func() {
		s.errs.err = nil
		s.errs.source = ""
		s.MarkDirty()
	}), nil
}

// CaughtError returns the error an ErrorBoundary scope is displaying and
// the name of the component that raised it.
func (s *Scope) CaughtError() (error, string) {
	if s.errs == nil {
		return nil, ""
	}
	return s.errs.err, s.errs.source
}
