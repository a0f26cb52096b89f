// Package secret resolves credentials given in configuration.
//
// A value is first expanded against the environment (see ExpandEnvStrict).
// If the result is a reference of the form
//
//	secretref:<provider>:<ref>
//
// it is replaced by what the named provider returns, for example
// secretref:file:/run/secrets/openreview_password or secretref:env:OR_PASS.
// Anything else is used as is.
package secret
