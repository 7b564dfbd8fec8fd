// Package deliver moves assembled chapter documents to their destination.
//
// Local delivery copies into the configured download directory. Email
// delivery sends the document to a Kindle address over SMTP and can delete
// the local copy afterwards. Delivery failures never undo a download record:
// the chapter stays recorded and the document stays on disk for manual
// handling.
package deliver
