// Package main provides the entry point for the docredact CLI.
//
// docredact removes sensitive text from Word (.docx) documents. Paragraphs
// are extracted, character ranges are marked for redaction and the marked
// ranges are replaced with █ in a copy of the package. Everything outside
// the document part is copied through byte for byte.
//
// Usage:
//
//	docredact extract <file.docx>
//	docredact mark <document-id> requests.json
//	docredact apply <document-id>
//	docredact redact --requests requests.json <file.docx>
//	docredact serve
//
// See --help for all available options.
package main

// main is the entry point for docredact.
func main() {
	Execute()
}
