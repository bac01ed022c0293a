// Package markdown loads Markdown source files from the filesystem, splits
// YAML front matter from body content, and renders bodies to HTML through
// Goldmark. Failures stay local to the document that caused them so one bad
// file never aborts a directory load.
package markdown
