package query

type ruleKind int

const (
	ruleStatic ruleKind = iota
	ruleArgs
	ruleResult
)

// TagRule computes the tags an endpoint provides (queries) or invalidates
// (mutations).  It is one of: a static list, a function of the call
// arguments, or a function of arguments and outcome.  The zero TagRule is an
// empty static list.
type TagRule struct {
	kind   ruleKind
	static []Tag
	args   func(args any) []Tag
	result func(args, result any, err error) []Tag
}

func Static(tags ...Tag) TagRule {
	return TagRule{kind: ruleStatic, static: tags}
}

// FromArgs derives tags from the call arguments alone, so they are known
// before the request completes.
func FromArgs[A any](f func(A) []Tag) TagRule {
	return TagRule{
		kind: ruleArgs,
		args: func(a any) []Tag {
			v, ok := a.(A)
			if !ok {
				return nil
			}
			return f(v)
		},
	}
}

// FromResult derives tags from the arguments and the decoded response.  On
// failure result is nil and err is set.
func FromResult[A, R any](f func(A, *R, error) []Tag) TagRule {
	return TagRule{
		kind: ruleResult,
		result: func(a, r any, err error) []Tag {
			av, _ := a.(A)
			rv, _ := r.(*R)
			return f(av, rv, err)
		},
	}
}

// NeedsResult reports whether Evaluate depends on the response.
func (r TagRule) NeedsResult() bool {
	return r.kind == ruleResult
}

func (r TagRule) Evaluate(args, result any, err error) []Tag {
	switch r.kind {
	case ruleArgs:
		return r.args(args)
	case ruleResult:
		return r.result(args, result, err)
	}
	return append([]Tag(nil), r.static...)
}
