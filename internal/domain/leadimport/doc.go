// Package leadimport turns decoded spreadsheet rows into canonical lead candidates
// and reports duplicate list assignments within one upload.
//
// It has two stages, both pure functions over in-memory data:
//
//   - the row normalizer ([NormalizeRow], [NormalizeRows]) maps one raw row onto a
//     [CanonicalLead] using a static header-alias table, resolves a display name and
//     an identity key, and splits/dedupes the Lists cell;
//   - the batch detector ([DetectDuplicates]) walks the normalized rows in order and
//     reports a [DuplicateIssue] whenever a list item is assigned to the same identity
//     twice, or a Lists cell repeats an item.
//
// [Process] runs both. Nothing here performs I/O or keeps state between calls, so
// independent batches may be processed concurrently. A single batch must be handed
// over in upload order: "first seen wins" is only defined for a fixed row order.
//
// Findings are data, never errors. Whether they block a commit is the caller's call.
package leadimport
