package compose

import (
	"path"
	"strings"
)

var extensionLanguages = map[string]string{
	".c":          "c",
	".h":          "c",
	".cc":         "cpp",
	".cpp":        "cpp",
	".hpp":        "cpp",
	".cs":         "csharp",
	".css":        "css",
	".go":         "go",
	".html":       "html",
	".java":       "java",
	".js":         "javascript",
	".mjs":        "javascript",
	".jsx":        "jsx",
	".json":       "json",
	".kt":         "kotlin",
	".lua":        "lua",
	".md":         "markdown",
	".markdown":   "markdown",
	".php":        "php",
	".py":         "python",
	".rb":         "ruby",
	".rs":         "rust",
	".scss":       "scss",
	".sh":         "bash",
	".bash":       "bash",
	".sql":        "sql",
	".swift":      "swift",
	".toml":       "toml",
	".ts":         "typescript",
	".tsx":        "tsx",
	".vue":        "vue",
	".xml":        "xml",
	".yaml":       "yaml",
	".yml":        "yaml",
	".zsh":        "bash",
	".dockerfile": "dockerfile",
}

var nameLanguages = map[string]string{
	"makefile":   "makefile",
	"dockerfile": "dockerfile",
}

// Language returns the fence info string for a path, or "" when unknown.
func Language(rel string) string {
	name := strings.ToLower(path.Base(rel))
	if lang, ok := nameLanguages[name]; ok {
		return lang
	}
	return extensionLanguages[path.Ext(name)]
}
