// Package validation provides common validation utilities for configuration
// parameters across the coflow library.
//
// Every function returns a *errors.ValidationError so constructors can report
// the module, the offending field and a hint in one consistent format.
package validation
