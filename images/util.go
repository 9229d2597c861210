package images

import (
	"crypto/md5"
	"fmt"

	"gocv.io/x/gocv"
)

// MatChecksum generates a deterministic checksum of the pixel data of a Mat.
//
// Two frames with the same checksum are byte-identical, which is how tests
// prove that a frame left the annotator untouched.
//
// Arguments:
//   - mat: The Mat to compute the checksum for.
//
// Returns:
//   - A hex-encoded MD5 checksum string, or "empty" for an empty Mat.
func MatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	data, err := mat.DataPtrUint8()
	if err != nil {
		return "unreadable"
	}
	hash := md5.New()
	hash.Write(data)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
