package leetcode

// Language display names paired with the values LeetCode reports in
// submission records (and which tenants store in their accepted list).
var langNames = []string{"C++", "Java", "Python", "Python3", "C", "C#", "JavaScript", "Ruby", "Swift", "Go", "Scala",
	"Kotlin", "Rust", "PHP", "TypeScript", "Racket", "Erlang", "Dart"}

var langValues = []string{"cpp", "java", "python", "python3", "c", "csharp", "javascript", "ruby", "swift", "go", "scala",
	"kotlin", "rust", "php", "typescript", "racket", "erlang", "dart"}

// LangName returns the display name for a stored language value, or "".
func LangName(value string) string {
	for i, v := range langValues {
		if v == value {
			return langNames[i]
		}
	}
	return ""
}

// LangValue returns the stored value for a display name, or "".
func LangValue(name string) string {
	for i, n := range langNames {
		if n == name {
			return langValues[i]
		}
	}
	return ""
}

// KnownLang reports whether value is a recognized language value.
func KnownLang(value string) bool { return LangName(value) != "" }

// Languages returns all recognized language values.
func Languages() []string { return append([]string(nil), langValues...) }
