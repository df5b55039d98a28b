// Package secret resolves secret references in configuration values.
//
// A value is first expanded strictly (${VAR} must be set, $$ escapes a
// dollar sign) and then any reference of the form
//
//	secretref:<provider>:<ref>
//
// is replaced by the provider's answer. The built-in providers are "env"
// (an environment variable) and "file" (a file's contents without the
// trailing newline, as mounted by container orchestrators). A reference may
// be the whole value or embedded in it, e.g. "Bearer secretref:env:TOKEN".
package secret
