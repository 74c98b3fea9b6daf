package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// CodeReviewTools returns the built-in code analysis tool suite: a four-step
// pipeline (extract -> complexity -> issues -> improve) operating on a
// "code" field in the run state. The tools recognize both Python-style `def`
// and Go-style `func` declarations so the pipeline works on mixed sources.
func CodeReviewTools() []Tool {
	return []Tool{
		Func{ToolName: "extract_functions", Desc: "Extract function declarations from state['code']", Fn: extractFunctions},
		Func{ToolName: "check_complexity", Desc: "Score the complexity of extracted functions", Fn: checkComplexity},
		Func{ToolName: "detect_issues", Desc: "Flag structural issues in the code under review", Fn: detectIssues},
		Func{ToolName: "suggest_improvements", Desc: "Derive suggestions and an overall quality score", Fn: suggestImprovements},
	}
}

var funcDeclRe = regexp.MustCompile(`^\s*(?:def\s+(\w+)\s*\(|func\s+(?:\([^)]*\)\s+)?(\w+)\s*\()`)

// extractFunctions scans the code line by line for function declarations and
// records name, start line, argument count, and body length (the number of
// following lines indented deeper than the declaration).
func extractFunctions(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error) {
	code, _ := state["code"].(string)
	lines := strings.Split(code, "\n")

	functions := make([]map[string]any, 0)
	for i, line := range lines {
		m := funcDeclRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if name == "" {
			name = m[2]
		}

		functions = append(functions, map[string]any{
			"name":        name,
			"line_start":  i + 1,
			"args_count":  countArgs(line),
			"body_length": bodyLength(lines, i),
		})
	}

	return map[string]any{
		"functions":      functions,
		"function_count": len(functions),
	}, nil
}

// countArgs counts the parameters in the declaration's parameter list.
func countArgs(line string) int {
	open := strings.Index(line, "(")
	if open < 0 {
		return 0
	}
	// For methods, skip the receiver group.
	if rest := line[open+1:]; strings.HasPrefix(strings.TrimSpace(line), "func (") {
		if close := strings.Index(rest, ")"); close >= 0 {
			if next := strings.Index(rest[close:], "("); next >= 0 {
				open += 1 + close + next
			}
		}
	}
	close := strings.Index(line[open:], ")")
	inner := ""
	if close > 0 {
		inner = line[open+1 : open+close]
	} else {
		inner = line[open+1:]
	}
	if strings.TrimSpace(inner) == "" {
		return 0
	}
	return strings.Count(inner, ",") + 1
}

// bodyLength counts the lines after the declaration that are indented deeper
// than the declaration itself.
func bodyLength(lines []string, declIdx int) int {
	declIndent := indentOf(lines[declIdx])
	n := 0
	for _, line := range lines[declIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if indentOf(line) <= declIndent {
			break
		}
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// checkComplexity scores each extracted function: two points per argument
// plus one per body line. Scores above 20 are high, above 10 medium.
func checkComplexity(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error) {
	functions := mapSlice(state["functions"])

	scores := make([]map[string]any, 0, len(functions))
	total := 0.0
	for _, fn := range functions {
		score := asInt(fn["args_count"])*2 + asInt(fn["body_length"])

		level := "low"
		switch {
		case score > 20:
			level = "high"
		case score > 10:
			level = "medium"
		}

		scores = append(scores, map[string]any{
			"function":   fn["name"],
			"complexity": score,
			"level":      level,
		})
		total += float64(score)
	}

	avg := 0.0
	if len(scores) > 0 {
		avg = total / float64(len(scores))
	}

	return map[string]any{
		"complexity_scores": scores,
		"avg_complexity":    avg,
	}, nil
}

// detectIssues flags structural problems: oversized files, global variable
// overuse, bare exception handlers, and over-parameterized functions.
func detectIssues(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error) {
	code, _ := state["code"].(string)
	issues := make([]map[string]any, 0)

	if len(code) > 5000 {
		issues = append(issues, issue("length", "Code is very long", "medium"))
	}
	if strings.Count(code, "global ") > 2 {
		issues = append(issues, issue("globals", "Too many global variables", "high"))
	}
	if strings.Contains(code, "except:") || strings.Contains(code, "except :") {
		issues = append(issues, issue("exception", "Bare except clause found", "medium"))
	}

	for _, fn := range mapSlice(state["functions"]) {
		if asInt(fn["args_count"]) > 5 {
			issues = append(issues, issue("parameters",
				fmt.Sprintf("Function %v has too many parameters", fn["name"]), "medium"))
		}
	}

	return map[string]any{
		"issues":      issues,
		"issue_count": len(issues),
	}, nil
}

func issue(kind, message, severity string) map[string]any {
	return map[string]any{"type": kind, "message": message, "severity": severity}
}

// suggestImprovements turns detected issues and complexity scores into
// suggestions and computes the overall quality score:
// clamp(100 - issues*10 - avg_complexity/2) into [0, 100].
func suggestImprovements(ctx context.Context, state map[string]any, params map[string]any) (map[string]any, error) {
	issues := mapSlice(state["issues"])
	scores := mapSlice(state["complexity_scores"])

	suggestions := make([]string, 0)
	for _, is := range issues {
		switch is["type"] {
		case "length":
			suggestions = append(suggestions, "Consider splitting the code into multiple modules")
		case "globals":
			suggestions = append(suggestions, "Refactor to use struct fields or function parameters")
		case "exception":
			suggestions = append(suggestions, "Use specific exception types instead of bare except")
		case "parameters":
			suggestions = append(suggestions, fmt.Sprintf("Reduce parameters: %v", is["message"]))
		}
	}
	for _, sc := range scores {
		if sc["level"] == "high" {
			suggestions = append(suggestions,
				fmt.Sprintf("Simplify function %v - complexity is high", sc["function"]))
		}
	}

	quality := 100 - float64(len(issues))*10 - asFloat(state["avg_complexity"])/2
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}

	return map[string]any{
		"suggestions":       suggestions,
		"quality_score":     quality,
		"improvement_count": len(suggestions),
	}, nil
}

// mapSlice coerces a state value into a slice of maps. Values may arrive as
// []map[string]any (same-process tool output) or []any (JSON round-trip).
func mapSlice(v any) []map[string]any {
	switch val := v.(type) {
	case []map[string]any:
		return val
	case []any:
		out := make([]map[string]any, 0, len(val))
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
