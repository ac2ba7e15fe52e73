//go:build !embed_web

package hallynk

import "io/fs"

// WebDistFS is nil without the embed_web tag; the server then serves
// FrontendDistDir from disk.
var WebDistFS fs.FS
