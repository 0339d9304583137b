// Package correlator turns a stream of intercepted XPC calls into records.
//
// Each event is classified by its hooked symbol. Synchronous and plain calls
// produce a record at once. Asynchronous calls wait in a pending table keyed
// by thread id until a callback or event-handler delivery on the same thread
// completes them; a delivery with nothing pending becomes an orphan record.
// Events from well-known system services are discarded before
// classification.
//
// JSON payloads are normalized on the way through: any object field named
// "root" holding base64 text that decodes to a bplist17 document is replaced
// by the decoded value.
package correlator
