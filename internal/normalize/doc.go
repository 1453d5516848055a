// Package normalize turns a raw crawl log into a canonical dataset: duplicate
// records are collapsed, catalog column names are mapped to stable field
// names, and records are sorted for reproducible output.
package normalize
