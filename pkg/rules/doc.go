// Package rules defines the Business Rules Framework data model: the Rule
// aggregate, its recursive condition tree, its ordered action list, and the
// organization-type/category vocabulary that scopes which rules are valid for
// which kind of organization.
//
// A Rule is declarative data. It says nothing about how conditions are
// evaluated or actions are executed; that is the job of the engine package.
// Construction-time validation (tree shape, operator/data-type compatibility,
// action parameter variants) lives in the validator subpackage and must be run
// before a rule ever reaches the engine; the engine assumes valid rules.
//
// # Condition trees
//
// Conditions are strictly tree-shaped. A node is either a leaf test
// (field/operator/value/dataType) or a combinator holding And/Or children, or
// both: when a leaf test and child groups coexist on one node, the groups are
// combined with the leaf result via AND. Not negates the node's combined
// result before it is returned to the parent.
//
// # Action parameters
//
// Action parameters are a tagged union keyed by the action type. Each variant
// is a strongly typed struct (NotifyParams, ContractParams, ...) so the
// executor never digs through untyped maps at run time.
package rules
