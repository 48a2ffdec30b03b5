package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Object names are namespaced by the owning auth user ID. Singleton images
// live at deterministic paths so a re-submission overwrites the previous
// object instead of leaking a new one; gallery and publication images get
// collision-free names because they are append-only.

func variantObjectName(objectName string, size variantSize) string {
	ext := path.Ext(objectName)
	return strings.TrimSuffix(objectName, ext) + "_" + string(size) + ext
}

// ProfileImagePath is the deterministic path of a user's profile photo.
func ProfileImagePath(authUserID uuid.UUID) string {
	return authUserID.String() + "/profile.jpg"
}

// IDFrontPath is the deterministic path of the front of a provider's identity document.
func IDFrontPath(authUserID uuid.UUID) string {
	return authUserID.String() + "/id-front.jpg"
}

// IDBackPath is the deterministic path of the back of a provider's identity document.
func IDBackPath(authUserID uuid.UUID) string {
	return authUserID.String() + "/id-back.jpg"
}

// GalleryPath returns a collision-free path for a gallery image. The original
// filename is kept for operator legibility; the timestamp prefix makes it unique.
func GalleryPath(authUserID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/gallery/%d-%s", authUserID, time.Now().UnixNano(), sanitizeFilename(filename))
}

// UploadPath returns a random object name for standalone uploads
// (publication images), keeping the original extension.
func UploadPath(authUserID uuid.UUID, filename string) string {
	ext := path.Ext(filename)
	return authUserID.String() + "/" + uuid.New().String() + ext
}

// sanitizeFilename strips path separators and whitespace from a client-supplied
// filename before it becomes part of an object name.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	name = strings.ReplaceAll(name, " ", "-")
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}
