package images

import (
	"crypto/md5"
	"fmt"

	"gocv.io/x/gocv"
)

// ComputeMatChecksum generates a deterministic checksum for a Mat to verify idempotency.
//
// The size and type are hashed together with the pixel data, so a CV_8U and a CV_32F
// mask never collide.
//
// Arguments:
//   - mat: The Mat to compute checksum for.
//
// Returns:
//   - string: A hex-encoded MD5 checksum, or "empty".
//
// Example:
//
// ```go
//
//	before := ComputeMatChecksum(mask)
//	// ... skipped tick ...
//	same := before == ComputeMatChecksum(mask)
//
// ```
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	hash := md5.New()
	fmt.Fprintf(hash, "%dx%d:%d:", mat.Cols(), mat.Rows(), mat.Type())
	hash.Write(mat.ToBytes())
	return fmt.Sprintf("%x", hash.Sum(nil))
}
