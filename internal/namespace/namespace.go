// Package namespace maps verified user emails onto object-storage prefixes.
//
// Every object a user owns lives under Prefix(email). The encoding replaces
// "@" with "_at_" and "." with "_dot_"; a literal "_" is doubled so that the
// marker sequences cannot be forged by the local part of an address.
package namespace

import "strings"

const separator = "/"

var encoder = strings.NewReplacer(
	"_", "__",
	"@", "_at_",
	".", "_dot_",
)

// Prefix returns the folder that holds every object owned by email.
func Prefix(email string) string {
	return encoder.Replace(email) + separator
}

// Object returns the absolute object path of name inside the email's folder.
func Object(email, name string) string {
	return Prefix(email) + name
}

// Relative strips prefix from an absolute object path.
func Relative(prefix, objectName string) string {
	return strings.TrimPrefix(objectName, prefix)
}
