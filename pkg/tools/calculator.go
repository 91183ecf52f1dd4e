package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
)

// arithmeticTool is a two-integer calculator operation.
type arithmeticTool struct {
	name        string
	description string
	apply       func(first, second int) (string, error)
}

// NewAddTool returns the add tool.
func NewAddTool() Tool {
	return &arithmeticTool{
		name:        "add",
		description: "Adds two integers and returns the sum.",
		apply: func(first, second int) (string, error) {
			return strconv.Itoa(first + second), nil
		},
	}
}

// NewSubtractTool returns the subtract tool.
func NewSubtractTool() Tool {
	return &arithmeticTool{
		name:        "subtract",
		description: "Subtracts the second integer from the first.",
		apply: func(first, second int) (string, error) {
			return strconv.Itoa(first - second), nil
		},
	}
}

// NewMultiplyTool returns the multiply tool.
func NewMultiplyTool() Tool {
	return &arithmeticTool{
		name:        "multiply",
		description: "Multiplies two integers and returns the product.",
		apply: func(first, second int) (string, error) {
			return strconv.Itoa(first * second), nil
		},
	}
}

// NewDivideTool returns the divide tool.
func NewDivideTool() Tool {
	return &arithmeticTool{
		name:        "divide",
		description: "Divides the first integer by the second.",
		apply: func(first, second int) (string, error) {
			if second == 0 {
				return "", fmt.Errorf("division by zero")
			}
			result := float64(first) / float64(second)
			return strconv.FormatFloat(result, 'f', -1, 64), nil
		},
	}
}

// CalculatorTools returns all four arithmetic tools.
func CalculatorTools() []Tool {
	return []Tool{
		NewAddTool(),
		NewSubtractTool(),
		NewMultiplyTool(),
		NewDivideTool(),
	}
}

func (t *arithmeticTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.name,
		Description: t.description,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"first": map[string]any{
					"type":        "integer",
					"description": "First integer",
				},
				"second": map[string]any{
					"type":        "integer",
					"description": "Second integer",
				},
			},
			"required": []string{"first", "second"},
		},
	}
}

func (t *arithmeticTool) GetName() string { return t.name }

func (t *arithmeticTool) GetDescription() string { return t.description }

func (t *arithmeticTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	first, err := intArg(args, "first")
	if err != nil {
		return NewToolResultError(t.name, err.Error()), nil
	}
	second, err := intArg(args, "second")
	if err != nil {
		return NewToolResultError(t.name, err.Error()), nil
	}

	result, err := t.apply(first, second)
	if err != nil {
		return NewToolResultError(t.name, err.Error()), nil
	}
	return NewToolResult(t.name, result), nil
}

// intArg extracts an integer argument, coercing the numeric types JSON
// decoding produces.
func intArg(args map[string]any, key string) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", key)
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		// JSON numbers decode as float64. Whole values are fine,
		// anything fractional is not an integer argument.
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("argument %q must be an integer, got %v", key, v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("argument %q must be an integer, got %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", key, raw)
	}
}
