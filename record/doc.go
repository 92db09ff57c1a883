// Package record binds application objects onto table rows: an ordered
// WHERE-clause builder, a multi-row RecordBinder with validation and
// optimistic-conflict hooks, and a SingleRecordBinder with soft-delete
// awareness.
package record
