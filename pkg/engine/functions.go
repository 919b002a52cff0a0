package engine

import (
	"fmt"
	"slices"
)

// Function identifies a kernel that an [Engine] can call.
type Function int

// Recognized values of [Function].
const (
	FunctionInvalid Function = iota // Invalid function.

	FunctionMax          // Largest element of each row.
	FunctionMin          // Smallest element of each row.
	FunctionSum          // Sum of each row.
	FunctionMean         // Mean of each row.
	FunctionMedian       // Median of each row.
	FunctionStd          // Standard deviation of each row.
	FunctionVar          // Variance of each row.
	FunctionUnique       // Distinct elements, sorted.
	FunctionUniqueStable // Distinct elements, first occurrence order.
	FunctionNUnique      // Number of distinct elements.
	FunctionAny          // Kleene OR of each row.
	FunctionAll          // Kleene AND of each row.
	FunctionSort         // Sort elements within each row.
	FunctionReverse      // Reverse elements within each row.
	FunctionArgMin       // Position of the smallest element.
	FunctionArgMax       // Position of the largest element.
	FunctionGet          // Element at an index.
	FunctionGather       // Elements at a set of indices.
	FunctionJoin         // Concatenate string elements.
	FunctionCountMatches // Count elements equal to a value.
	FunctionShift        // Shift elements within each row.
	FunctionRepeatBy     // Repeat values into lists.
)

type functionInfo struct {
	name  string
	arity int // Number of column arguments.
}

var functions = map[Function]functionInfo{
	FunctionMax:          {"max", 1},
	FunctionMin:          {"min", 1},
	FunctionSum:          {"sum", 1},
	FunctionMean:         {"mean", 1},
	FunctionMedian:       {"median", 1},
	FunctionStd:          {"std", 1},
	FunctionVar:          {"var", 1},
	FunctionUnique:       {"unique", 1},
	FunctionUniqueStable: {"unique_stable", 1},
	FunctionNUnique:      {"n_unique", 1},
	FunctionAny:          {"any", 1},
	FunctionAll:          {"all", 1},
	FunctionSort:         {"sort", 1},
	FunctionReverse:      {"reverse", 1},
	FunctionArgMin:       {"arg_min", 1},
	FunctionArgMax:       {"arg_max", 1},
	FunctionGet:          {"get", 2},
	FunctionGather:       {"gather", 2},
	FunctionJoin:         {"join", 2},
	FunctionCountMatches: {"count_matches", 1},
	FunctionShift:        {"shift", 2},
	FunctionRepeatBy:     {"repeat_by", 2},
}

// String returns the name of the function.
func (f Function) String() string {
	if info, ok := functions[f]; ok {
		return info.name
	}
	return fmt.Sprintf("Function(%d)", f)
}

// Arity returns the number of column arguments f takes.
func (f Function) Arity() int { return functions[f].arity }

// ParseFunction returns the Function named name.
func ParseFunction(name string) (Function, error) {
	for f, info := range functions {
		if info.name == name {
			return f, nil
		}
	}
	return FunctionInvalid, fmt.Errorf("%w: unknown function %q", ErrNotSupported, name)
}

// Functions returns every supported Function in declaration order.
func Functions() []Function {
	out := make([]Function, 0, len(functions))
	for f := range functions {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}
