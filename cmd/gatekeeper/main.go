// Gatekeeper is a declarative business-rules engine for financial platforms.
//
// It evaluates organization-scoped rules against trigger events (transactions,
// user actions, scheduled checks) and produces audited decisions:
//   - Condition trees with strict typing over trigger data
//   - Priority-ordered evaluation with blocking-decision precedence
//   - Local decisions plus notification, contract and workflow actions
//   - A complete audit trail of every rule execution
//
// Usage:
//
//	# Start the daemon with default configuration
//	gatekeeper run
//
//	# Start with a custom configuration file
//	gatekeeper run --config /path/to/config.yaml
//
//	# Show version information
//	gatekeeper version
//
//	# Validate rule files
//	gatekeeper lint --path rules/
//
//	# Query the audit trail
//	gatekeeper audit query --rule-id sanctions-check --limit 50
package main

func main() {
	Execute()
}
