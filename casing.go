// casing.go: Canonical name derivation for groups, commands and option keys
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pantheon

import "github.com/iancoleman/strcase"

// KebabCase returns the canonical lowercase-hyphenated form of name.
// "ListAll" and "list_all" both become "list-all".
func KebabCase(name string) string {
	return strcase.ToKebab(name)
}

// CamelCase returns the lower camel case form of name, used for option keys
// and environment variable mapping. "FOO_BAR" becomes "fooBar".
func CamelCase(name string) string {
	return strcase.ToLowerCamel(name)
}
