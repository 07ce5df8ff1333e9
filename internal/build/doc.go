// Package build renders a content directory into a static output tree.
//
// A Builder loads every page, renders it, and writes the document to
// <permalink>/index.html in the output directory. Pages that fail are
// reported and skipped; the others are still written. The assets directory
// is copied next to the pages and a manifest records what was written so
// incremental builds can skip unchanged pages.
package build
