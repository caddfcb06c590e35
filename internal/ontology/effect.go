package ontology

// EffectKind discriminates the Effect union.
type EffectKind string

const (
	EffectModifyProperty EffectKind = "modify_property"
	EffectBlock          EffectKind = "block"
	EffectAllow          EffectKind = "allow"
)

// Effect is what a relation does when it fires. The set of implementations
// is closed: ModifyProperty, Block and Allow.
type Effect interface {
	EffectKind() EffectKind
	sealedEffect()
}

// ModifyOperation is the arithmetic applied by a ModifyProperty effect.
type ModifyOperation string

const (
	OpAdd      ModifyOperation = "add"
	OpSubtract ModifyOperation = "subtract"
	OpMultiply ModifyOperation = "multiply"
	OpMin      ModifyOperation = "min"
	OpMax      ModifyOperation = "max"
)

// ParseModifyOperation normalizes an operation name.
func ParseModifyOperation(raw string) (ModifyOperation, bool) {
	switch normalizeToken(raw) {
	case "add", "plus":
		return OpAdd, true
	case "subtract", "sub", "minus":
		return OpSubtract, true
	case "multiply", "mul", "times":
		return OpMultiply, true
	case "min":
		return OpMin, true
	case "max":
		return OpMax, true
	}
	return "", false
}

// ModifyProperty changes the subject's TargetProperty using the object's
// SourceProperty. Both are concept-local names.
type ModifyProperty struct {
	TargetProperty string
	SourceProperty string
	Operation      ModifyOperation
}

// Block forbids the relation's subject from acting on the object. A nil
// Condition blocks unconditionally.
type Block struct {
	Condition Expr
}

// Allow permits the relation's subject to act on the object when Condition
// holds. Movement does not consume it yet.
type Allow struct {
	Condition Expr
}

func (ModifyProperty) EffectKind() EffectKind { return EffectModifyProperty }
func (Block) EffectKind() EffectKind          { return EffectBlock }
func (Allow) EffectKind() EffectKind          { return EffectAllow }

func (ModifyProperty) sealedEffect() {}
func (Block) sealedEffect()          {}
func (Allow) sealedEffect()          {}

// IsSubtract reports whether e is a ModifyProperty with the subtract
// operation, returning it when so.
func IsSubtract(e Effect) (ModifyProperty, bool) {
	modify, ok := e.(ModifyProperty)
	if !ok || modify.Operation != OpSubtract {
		return ModifyProperty{}, false
	}
	return modify, true
}

// EffectCondition returns the optional condition of a Block or Allow.
func EffectCondition(e Effect) Expr {
	switch effect := e.(type) {
	case Block:
		return effect.Condition
	case Allow:
		return effect.Condition
	}
	return nil
}
