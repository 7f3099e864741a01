// Package validator performs construction-time validation of rules before
// they are admitted to the registry. Validation is the only place malformed
// rules are rejected; the engine assumes every rule it sees has passed.
//
// Three passes run in sequence:
//
//  1. Structural - identity fields, tree shape, nesting depth, unique IDs
//  2. Semantic - operator/data-type compatibility, organization/category pair
//  3. Actions - per-type parameter variants and required fields
//
// Errors from all passes are accumulated into a single ErrorList so an admin
// surface can show every problem at once.
package validator
