package rules

// DataType declares the expected runtime type of a condition's resolved field
// value. Evaluation is strict: a mismatch is an error, never a coercion.
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeArray   DataType = "array"
	DataTypeDate    DataType = "date"
)

// IsValid returns true if the data type is one of the known values.
func (d DataType) IsValid() bool {
	switch d {
	case DataTypeString, DataTypeNumber, DataTypeBoolean, DataTypeArray, DataTypeDate:
		return true
	}
	return false
}

// Operator is a comparison operator in a leaf condition test.
type Operator string

const (
	OperatorEquals         Operator = "equals"
	OperatorNotEquals      Operator = "not-equals"
	OperatorGreaterThan    Operator = "greater-than"
	OperatorLessThan       Operator = "less-than"
	OperatorGreaterOrEqual Operator = "greater-or-equal"
	OperatorLessOrEqual    Operator = "less-or-equal"
	OperatorContains       Operator = "contains"
	OperatorNotContains    Operator = "not-contains"
	OperatorIn             Operator = "in"
	OperatorNotIn          Operator = "not-in"
	OperatorBetween        Operator = "between"
	OperatorRegex          Operator = "regex"
)

// IsValid returns true if the operator is one of the known values.
func (op Operator) IsValid() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals,
		OperatorGreaterThan, OperatorLessThan,
		OperatorGreaterOrEqual, OperatorLessOrEqual,
		OperatorContains, OperatorNotContains,
		OperatorIn, OperatorNotIn,
		OperatorBetween, OperatorRegex:
		return true
	}
	return false
}

// IsNegative reports whether the operator asserts absence or inequality.
// A missing field satisfies a negative operator (evaluates true) and fails a
// positive one (evaluates false).
func (op Operator) IsNegative() bool {
	switch op {
	case OperatorNotEquals, OperatorNotContains, OperatorNotIn:
		return true
	}
	return false
}

// MaxConditionDepth bounds how deeply condition trees may nest. Deeper trees
// are rejected at construction time.
const MaxConditionDepth = 32

// Condition is one node of a rule's condition tree: a leaf test
// (field operator value), a combinator holding And/Or children, or both.
// When a leaf test and child groups coexist, the And group (all children
// true) and the Or group (any child true) are each combined with the leaf
// result via AND. Not negates the combined result of this node.
type Condition struct {
	ID       string      `yaml:"id" json:"id"`
	Field    string      `yaml:"field,omitempty" json:"field,omitempty"`
	Operator Operator    `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value    interface{} `yaml:"value,omitempty" json:"value,omitempty"`
	DataType DataType    `yaml:"dataType,omitempty" json:"dataType,omitempty"`

	And []*Condition `yaml:"and,omitempty" json:"and,omitempty"`
	Or  []*Condition `yaml:"or,omitempty" json:"or,omitempty"`
	Not bool         `yaml:"not,omitempty" json:"not,omitempty"`
}

// IsLeaf returns true if this node carries a leaf test.
func (c *Condition) IsLeaf() bool {
	return c.Field != ""
}

// HasChildren returns true if this node carries an And or Or group.
func (c *Condition) HasChildren() bool {
	return len(c.And) > 0 || len(c.Or) > 0
}

// Depth returns the maximum nesting depth of the tree rooted at this node.
// A node with no children has depth 1.
func (c *Condition) Depth() int {
	deepest := 0
	for _, child := range c.And {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	for _, child := range c.Or {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
