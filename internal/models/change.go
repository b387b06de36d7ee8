package models

// ChangeBlock is one file extracted from a change document.
type ChangeBlock struct {
	Path    string // Path candidate as written in the document
	HasPath bool   // False when no resolver found a path
	Lang    string // Language tag of the fence, if any
	Content string // File body, terminated by a newline
}
