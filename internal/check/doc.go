// Package check runs the update cycle: list every source of every reading
// title, decide per chapter through the fallback engine, then download,
// assemble, deliver, and record.
//
// A source that fails to list is treated as listing nothing, so one dead
// site never stalls the rest of the cycle. A failed fetch or assembly is
// retried once and then skipped; a skipped chapter is picked up again on the
// next run. Browser-backed sources are recycled after a configured number of
// fetches through them.
package check
