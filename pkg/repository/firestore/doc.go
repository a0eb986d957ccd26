// Package firestore implements the production repository backend.
//
// Collections:
//   - cases: case documents keyed by case ID
//   - case_requests: one lock document per claimed request ID (unique index)
//   - case_numbers: one lock document per assigned display number
//   - appointments, inspections: companion records keyed by their ID
//   - audit_entries: append-only, composite-indexed on
//     (entity_type, entity_id, created_at)
//   - sequences: one counter document per {PREFIX}-{YYYY} key
//
// Required composite index: audit_entries(entity_type ASC, entity_id ASC,
// created_at ASC). Single-field indexes cover everything else.
package firestore
