// Package errors provides coded, structured errors for vcore.
//
// Precondition violations in the reconciliation engine (malformed templates,
// slot count mismatches, hook order changes) are reported with a stable code
// so that logs, panics and CLI output all point at the same explanation.
//
// # Error Categories
//
//   - template: malformed templates or VNodes handed to the engine
//   - hooks: hook order violations inside a component body
//   - diff: recoverable reconciliation problems (duplicate or mixed keys)
//   - render: component render failures that reached the root
//   - protocol: wire codec errors
//   - config: configuration loading and validation errors
//
// # Usage
//
//	err := errors.New("E102").
//	    WithDetail("template \"row\" declares 2 dynamic nodes, got 1").
//	    WithSuggestion("Pass one DynamicNode per Dyn/DynText slot")
//
//	fmt.Print(err.Format())
//	// Output:
//	// error[E102]: Dynamic value count mismatch
//	//   | template "row" declares 2 dynamic nodes, got 1
//	//   = help: Pass one DynamicNode per Dyn/DynText slot
//
// Coded errors implement slog.LogValuer, so passing one as a log attribute
// records its fields as a group.
package errors
