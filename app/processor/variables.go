// Copyright 2026 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package processor

import (
	"regexp"
)

const (
	regexVariable        = `\{\{([^}]+)\}\}`
	regexEncodedOpening  = `(?i)%7B%7B`
	regexEncodedClosing  = `(?i)%7D%7D`
	placeholderOpening   = "{{"
	placeholderClosing   = "}}"
	reMatchIndexVariable = 1
)

var (
	reVariable       = regexp.MustCompile(regexVariable)
	reEncodedOpening = regexp.MustCompile(regexEncodedOpening)
	reEncodedClosing = regexp.MustCompile(regexEncodedClosing)
)

// Lookup returns the value of a variable and whether it is defined
type Lookup func(name string) (string, bool)

// MapLookup returns a Lookup backed by a flat variables map
func MapLookup(variables map[string]string) Lookup {
	return func(name string) (string, bool) {
		value, ok := variables[name]
		return value, ok
	}
}

// Resolve replaces every {{name}} placeholder defined in variables with its
// value. Undefined placeholders are kept verbatim.
func Resolve(text string, variables map[string]string) string {
	return ResolveWith(text, MapLookup(variables))
}

// ResolveWith is Resolve over an arbitrary lookup
func ResolveWith(text string, lookup Lookup) string {
	if text == "" || lookup == nil {
		return text
	}
	return reVariable.ReplaceAllStringFunc(text, func(match string) string {
		submatch := reVariable.FindStringSubmatch(match)
		if value, ok := lookup(submatch[reMatchIndexVariable]); ok {
			return value
		}
		return match
	})
}

// HasVariables reports whether text contains at least one well-formed
// {{name}} placeholder
func HasVariables(text string) bool {
	return reVariable.MatchString(text)
}

// DecodePlaceholderEncoding turns percent-encoded placeholder braces back
// into {{ and }}
func DecodePlaceholderEncoding(text string) string {
	text = reEncodedOpening.ReplaceAllLiteralString(text, placeholderOpening)
	return reEncodedClosing.ReplaceAllLiteralString(text, placeholderClosing)
}
