package inventory

import (
	"regexp"
	"strings"
)

// codeRe is the category code shape: (1|2|3|4)(A–E|X)?(a–e|x)?
var codeRe = regexp.MustCompile(`^\(([1-4])\)(?:\(([A-EX])\)(?:\(([a-ex])\))?)?$`)

// ValidCode reports whether code follows the bracketed hierarchical format,
// e.g. "(1)(A)(c)", "(2)(C)" or "(4)". "3.A.b" and "[3][A][b]" are rejected.
func ValidCode(code string) bool {
	return codeRe.MatchString(code)
}

// Label returns the legend label for code, falling back to the closest
// parent category. Unknown codes return "".
func Label(code string) string {
	for c := code; c != ""; c = parentCode(c) {
		if l, ok := Categories[c]; ok {
			return l
		}
	}
	return ""
}

func parentCode(code string) string {
	i := strings.LastIndex(code, "(")
	if i <= 0 {
		return ""
	}
	return code[:i]
}

// Categories is the classification legend the classifier is asked to use.
var Categories = map[string]string{
	"(1)":       "Personally Identifiable Information (PII)",
	"(1)(A)":    "Contact identifiers",
	"(1)(A)(a)": "Real names",
	"(1)(A)(b)": "Pseudonames",
	"(1)(A)(c)": "E-mail addresses",
	"(1)(A)(d)": "Telephone numbers",
	"(1)(A)(e)": "Social Media Handlers (IDs)",
	"(1)(A)(x)": "Other contact identifiers",
	"(1)(B)":    "Numeric identifiers",
	"(1)(B)(a)": "Non-legal/private number identifiers",
	"(1)(B)(b)": "Legal number identifiers",
	"(1)(B)(c)": "Financial number identifiers",
	"(1)(B)(x)": "Other numeric identifiers",
	"(1)(C)":    "Location identifiers",
	"(1)(C)(a)": "Written addresses",
	"(1)(C)(b)": "Geological data",
	"(1)(C)(x)": "Other location identifiers",
	"(1)(D)":    "Indirect PII (Quasi-identifiers)",
	"(1)(D)(a)": "Employment context",
	"(1)(D)(b)": "Technical device identifiers",
	"(1)(D)(c)": "Behavioral data",
	"(1)(D)(d)": "Metadata linkage",
	"(1)(D)(x)": "Other indirect PII",

	"(2)":    "Company and Partner Information",
	"(2)(A)": "Corporate identities",
	"(2)(B)": "Affiliates and brands",
	"(2)(C)": "Internal project details",
	"(2)(X)": "Other enterprise details",

	"(3)":       "Technical Details",
	"(3)(A)":    "Authentication and access credentials",
	"(3)(A)(a)": "Service IDs and passwords",
	"(3)(A)(b)": "API keys",
	"(3)(A)(c)": "Tokens",
	"(3)(A)(d)": "Cryptographic authentication data",
	"(3)(A)(x)": "Other credentials",
	"(3)(B)":    "System and network configurations",
	"(3)(B)(a)": "Network topologies and addressing",
	"(3)(B)(b)": "Access control and firewall rules",
	"(3)(B)(c)": "Host and environment identifiers",
	"(3)(B)(d)": "Configuration files and manifests",
	"(3)(B)(x)": "Other configurations",
	"(3)(C)":    "Source code, analytic logic, and exploit materials",
	"(3)(C)(a)": "Signatures and detection rules",
	"(3)(C)(b)": "Source code and snippets",
	"(3)(C)(c)": "Exploits and payloads",
	"(3)(C)(d)": "Service or architecture diagrams",
	"(3)(C)(e)": "Analytical or heuristic content",
	"(3)(C)(x)": "Other business logics or methods",
	"(3)(D)":    "Operational evidence and system trace",
	"(3)(D)(a)": "Memory or crash dumps",
	"(3)(D)(b)": "System or application logs",
	"(3)(D)(c)": "Network captures",
	"(3)(D)(d)": "Embedded identifiers and metadata",
	"(3)(D)(x)": "Other system traces",
	"(3)(E)":    "Visual and attached materials",
	"(3)(E)(a)": "Screenshots and media",
	"(3)(E)(b)": "Diagrams or charts",
	"(3)(E)(c)": "Tool interfaces",
	"(3)(E)(d)": "Files or file listings",
	"(3)(E)(e)": "Links (URLs)",
	"(3)(E)(x)": "Other attachments",

	"(4)":    "Confidential and Legal Details",
	"(4)(A)": "Contracts and agreements",
	"(4)(B)": "Financial data",
	"(4)(C)": "Security",
	"(4)(D)": "Miscellaneous",
}
