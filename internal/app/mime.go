package app

import (
	"log"
	"mime"
)

// uploadTypes are the image formats accepted by the upload store. Minimal
// containers ship mime tables without webp or avif, which would make the
// /uploads file server answer application/octet-stream.
var uploadTypes = map[string]string{
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
}

func init() {
	for ext, typ := range uploadTypes {
		ensureMimeType(ext, typ)
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
