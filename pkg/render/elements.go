package render

// voidElements cannot have children and have no closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true,
	"embed": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true, "param": true, "source": true,
	"track": true, "wbr": true,
}

// booleanAttrs are rendered as a bare name when true and omitted when false.
var booleanAttrs = map[string]bool{
	"allowfullscreen": true, "async": true, "autofocus": true,
	"autoplay": true, "checked": true, "controls": true,
	"default": true, "defer": true, "disabled": true,
	"formnovalidate": true, "hidden": true, "ismap": true,
	"itemscope": true, "loop": true, "multiple": true,
	"muted": true, "nomodule": true, "novalidate": true,
	"open": true, "playsinline": true, "readonly": true,
	"required": true, "reversed": true, "selected": true,
}

func isVoidElement(tag string) bool { return voidElements[tag] }

func isBooleanAttr(name string) bool { return booleanAttrs[name] }
