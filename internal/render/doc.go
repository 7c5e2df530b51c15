// Package render evaluates named templates against a sealed parameter set.
//
// A template can only see the parameters it was explicitly given, through
// the `param` function. Reading a parameter that was not supplied fails the
// render immediately; finishing a render without having read every supplied
// parameter fails it as well, unless the caller opted out with AllowUnused.
// This keeps templates and the code feeding them from drifting apart
// silently.
//
// Templates may render other templates. A nested render receives only the
// parameters the calling template passes to it (built with `args`) and is
// verified on its own, so every render call is a node of an explicit tree
// with its own parameter bag and used-set.
//
// Functions available to templates:
//
//	param NAME                   value of a supplied parameter
//	args K1 V1 K2 V2 ...         builds the parameter bag of a nested render
//	render NAME BAG              nested render
//	renderIndent NAME N BAG      nested render, lines after the first indented by N
//	renderEscaped NAME BAG       nested render, escaped for a string literal
//	quote S                      single-quoted scripting-language literal
//	escape S                     escapes backslashes, newlines and quotes
//	join LIST SEP                strings.Join
//	sortedKeys MAP               sorted keys of a map[string]string
//
// Results of nested renders have their trailing newlines removed so that
// they can be embedded inline.
package render
