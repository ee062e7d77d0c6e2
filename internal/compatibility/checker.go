// Package compatibility decides whether Avro schemas can coexist under
// backward, forward, or full compatibility, both pairwise and across every
// enabled schema in a topic.
package compatibility

import (
	"github.com/dikang123/schematizer/internal/compatibility/avro"
)

// Result is the outcome of one of the three compatibility relations:
// whether the pair is compatible, and if not, why.
type Result struct {
	IsCompatible bool
	Messages     []string
}

// Merge folds other into r: r becomes incompatible if either already was,
// and other's messages are appended. Used to combine the backward and
// forward checks into IsFull, and to fold a topic's per-schema checks into
// one IsTopicCompatible verdict.
func (r *Result) Merge(other *Result) {
	if !other.IsCompatible {
		r.IsCompatible = false
		r.Messages = append(r.Messages, other.Messages...)
	}
}

func compatibleResult() *Result {
	return &Result{IsCompatible: true}
}

func incompatibleResult(messages ...string) *Result {
	return &Result{IsCompatible: false, Messages: messages}
}

// Checker evaluates the three compatibility relations over Avro JSON
// schemas. It is stateless and safe for concurrent use by multiple workers.
type Checker struct {
	engine *avro.Checker
}

// NewChecker creates a Checker backed by the Avro resolution-rule engine.
func NewChecker() *Checker {
	return &Checker{engine: avro.NewChecker()}
}

// IsBackward reports whether data written with old is readable by a reader
// using new: new is evaluated as the reader schema, old as the writer.
func (c *Checker) IsBackward(old, new string) *Result {
	ok, msgs := c.engine.Check(new, old)
	if ok {
		return compatibleResult()
	}
	return incompatibleResult(msgs...)
}

// IsForward reports whether data written with new is readable by a reader
// using old. Defined as IsBackward(new, old).
func (c *Checker) IsForward(old, new string) *Result {
	return c.IsBackward(new, old)
}

// IsFull reports whether old and new are both backward and forward
// compatible with each other.
func (c *Checker) IsFull(old, new string) *Result {
	result := c.IsBackward(old, new)
	result.Merge(c.IsForward(old, new))
	return result
}

// IsTopicCompatible reports whether candidate is full-compatible with every
// schema in enabled. An empty enabled set is trivially compatible.
func (c *Checker) IsTopicCompatible(candidate string, enabled []string) *Result {
	result := compatibleResult()
	for _, e := range enabled {
		result.Merge(c.IsFull(e, candidate))
	}
	return result
}
