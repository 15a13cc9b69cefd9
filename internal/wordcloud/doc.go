// Package wordcloud implements the viewer-side word view: tokenizing comments
// into delta batches and folding those batches into a capacity-bounded
// word-count mapping.
package wordcloud
