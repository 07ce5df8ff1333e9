// Package content holds the page model: pages loaded from front matter
// documents, their ordered feature groups and the entries inside them.
//
// Pages are immutable once loaded. Accessors hand out copies so a render
// pass can never alter what a later pass sees.
package content
