package constants

import "strings"

// Method identifies which extraction tier produced a candidate.
type Method string

// Stable values (store these exact strings in DB).
const (
	MethodPattern     Method = "pattern"
	MethodLayoutModel Method = "layout_model"
	MethodOCRLLM      Method = "ocr_llm"
	MethodVisionLLM   Method = "vision_llm"
	MethodNone        Method = "none"
)

var allMethods = []Method{
	MethodPattern,
	MethodLayoutModel,
	MethodOCRLLM,
	MethodVisionLLM,
}

// TierOrder is the cascade order, cheapest and most specific first.
func TierOrder() []Method {
	out := make([]Method, len(allMethods))
	copy(out, allMethods)
	return out
}

// CanonicalizeMethod maps loose method labels onto the stable enum.
func CanonicalizeMethod(input string) (Method, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "pattern", "regex":
		return MethodPattern, true
	case "layout_model", "layout", "layoutlm":
		return MethodLayoutModel, true
	case "ocr_llm", "ocr":
		return MethodOCRLLM, true
	case "vision_llm", "vision":
		return MethodVisionLLM, true
	default:
		return MethodNone, false
	}
}
