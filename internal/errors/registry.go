package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Template and VNode construction (E100-E199)

	"E101": {
		Category:   CategoryTemplate,
		Message:    "Template slot ids are not dense",
		Suggestion: "Number Dyn/DynText slots and DynAttr slots 0..n-1, each exactly once.",
	},
	"E102": {
		Category:   CategoryTemplate,
		Message:    "Dynamic value count mismatch",
		Suggestion: "Pass one DynamicNode per node slot and one attribute group per attribute slot.",
	},
	"E103": {
		Category:   CategoryTemplate,
		Message:    "Template too wide",
		Suggestion: "A template node may have at most 255 children; split it into nested templates.",
	},
	"E104": {
		Category:   CategoryTemplate,
		Message:    "Invalid template child",
		Suggestion: "El accepts TemplateAttr, TemplateNode and string arguments only.",
	},

	// Hooks (E200-E299)

	"E201": {
		Category:   CategoryHooks,
		Message:    "Hook order changed",
		Suggestion: "Call hooks unconditionally and in the same order on every render.",
	},
	"E202": {
		Category:   CategoryHooks,
		Message:    "Hook called outside render",
		Suggestion: "Hooks may only be called from a component's render function.",
	},

	// Reconciliation (E300-E399)

	"E301": {
		Category:   CategoryDiff,
		Message:    "Duplicate keys in fragment",
		Suggestion: "Give every sibling in a keyed list a unique key.",
	},
	"E302": {
		Category:   CategoryDiff,
		Message:    "Mixed keyed and unkeyed siblings",
		Suggestion: "Key either all items of a list or none of them.",
	},

	// Render (E400-E499)

	"E401": {
		Category:   CategoryRender,
		Message:    "Unhandled render error",
		Suggestion: "Wrap the component in an ErrorBoundary to render a fallback.",
	},
	"E402": {
		Category:   CategoryRender,
		Message:    "Event listener panic",
	},

	// Protocol (E500-E599)

	"E501": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
	},
	"E502": {
		Category: CategoryProtocol,
		Message:  "Unknown mutation op",
	},
	"E503": {
		Category: CategoryProtocol,
		Message:  "Unsupported attribute value",
	},

	// Config (E600-E699)

	"E601": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Suggestion: "Check vcore.json or vcore.yaml against the documented fields.",
	},
	"E602": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
