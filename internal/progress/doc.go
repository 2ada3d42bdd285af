// Package progress implements the item store: the mapping from item identity
// to ProgressRecord. The whole map is kept in memory and saved as one blob
// after every mutation. It also owns preferences and the import/export
// envelope, which travel together with progress.
package progress
